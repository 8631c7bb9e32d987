package repositories

import (
	"context"

	"project-tracker/models"
	"project-tracker/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(collection *mongo.Collection) *TaskRepository {
	return &TaskRepository{collection: collection}
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	_, err := r.collection.InsertOne(ctx, t)
	return mapErr(err)
}

func (r *TaskRepository) findOne(ctx context.Context, filter bson.M) (*models.Task, error) {
	var t models.Task
	if err := r.collection.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *TaskRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Task, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *TaskRepository) FindByAttachmentRef(ctx context.Context, ref string) (*models.Task, error) {
	return r.findOne(ctx, bson.M{"attachments.storageRef": ref})
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	return r.find(ctx, bson.M{"project": projectID}, bson.D{{Key: "createdAt", Value: -1}})
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, userID primitive.ObjectID, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	if len(projectIDs) == 0 {
		return []models.Task{}, nil
	}
	filter := bson.M{
		"assignee": userID,
		"project":  bson.M{"$in": projectIDs},
	}
	return r.find(ctx, filter, bson.D{{Key: "dueDate", Value: 1}})
}

func (r *TaskRepository) ListWithAttachmentsOn(ctx context.Context, backend string) ([]models.Task, error) {
	return r.find(ctx, bson.M{"attachments.backend": backend}, bson.D{{Key: "_id", Value: 1}})
}

// Update overwrites the editable fields only; comments and attachments are
// changed through their own atomic operations so concurrent appends survive.
func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	return r.updateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
		"title":          t.Title,
		"description":    t.Description,
		"assignee":       t.Assignee,
		"status":         t.Status,
		"priority":       t.Priority,
		"dueDate":        t.DueDate,
		"tags":           t.Tags,
		"estimatedHours": t.EstimatedHours,
		"actualHours":    t.ActualHours,
		"updatedAt":      t.UpdatedAt,
	}})
}

func (r *TaskRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updatedAt": now()},
	})
}

func (r *TaskRepository) AddAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"attachments": a},
		"$set":  bson.M{"updatedAt": now()},
	})
}

func (r *TaskRepository) ReplaceAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) error {
	return r.updateOne(ctx, bson.M{"_id": id, "attachments._id": a.ID}, bson.M{
		"$set": bson.M{"attachments.$": a},
	})
}

func (r *TaskRepository) RemoveAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"attachments": bson.M{"_id": attachmentID}},
		"$set":  bson.M{"updatedAt": now()},
	})
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"project": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

var _ services.TaskRepository = (*TaskRepository)(nil)
