package repositories

import (
	"context"
	"time"

	"project-tracker/models"
	"project-tracker/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProjectRepository struct {
	collection *mongo.Collection
}

func NewProjectRepository(collection *mongo.Collection) *ProjectRepository {
	return &ProjectRepository{collection: collection}
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	_, err := r.collection.InsertOne(ctx, p)
	return mapErr(err)
}

func (r *ProjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner": userID},
		bson.M{"members.user": userID},
	}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.ProjectPatch, at time.Time) (*models.Project, error) {
	set := bson.M{"updatedAt": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.EndDate != nil {
		set["endDate"] = *patch.EndDate
	}

	var p models.Project
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// exists distinguishes a missing project from a filtered out update.
func (r *ProjectRepository) exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// AddMember pushes m unless the user already holds an entry.
func (r *ProjectRepository) AddMember(ctx context.Context, id primitive.ObjectID, m models.Member) error {
	filter := bson.M{"_id": id, "owner": bson.M{"$ne": m.User}, "members.user": bson.M{"$ne": m.User}}
	update := bson.M{"$push": bson.M{"members": m}, "$set": bson.M{"updatedAt": now()}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		ok, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return services.ErrNotFound
		}
		return services.ErrAlreadyExists
	}
	return nil
}

// RemoveMember refuses to pull the owner even if asked to.
func (r *ProjectRepository) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "owner": bson.M{"$ne": userID}}
	update := bson.M{"$pull": bson.M{"members": bson.M{"user": userID}}, "$set": bson.M{"updatedAt": now()}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		ok, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return services.ErrNotFound
		}
		return services.ErrOwnerRemoval
	}
	return nil
}

func (r *ProjectRepository) AddTask(ctx context.Context, id, taskID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"tasks": taskID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) RemoveTask(ctx context.Context, id, taskID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"tasks": taskID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

var _ services.ProjectRepository = (*ProjectRepository)(nil)
