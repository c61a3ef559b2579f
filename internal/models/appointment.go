package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Appointment is a booking held by one user at one hospital. The user and
// hospital references are set at creation and never reassigned.
type Appointment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ApptDate  time.Time          `bson:"apptDate" json:"apptDate"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Hospital  primitive.ObjectID `bson:"hospital" json:"hospital"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
