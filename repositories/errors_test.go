package repositories

import (
	"errors"
	"testing"

	"project-tracker/services"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(mongo.ErrNoDocuments), services.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapErr(dup), services.ErrAlreadyExists)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}
