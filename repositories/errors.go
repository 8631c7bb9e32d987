package repositories

import (
	"errors"

	"project-tracker/services"

	"go.mongodb.org/mongo-driver/mongo"
)

// mapErr translates driver errors into the service error set.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return services.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return services.ErrAlreadyExists
	}
	return err
}
