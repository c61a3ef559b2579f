package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Hospital struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Address     string             `bson:"address" json:"address"`
	District    string             `bson:"district" json:"district"`
	Province    string             `bson:"province" json:"province"`
	Postalcode  string             `bson:"postalcode" json:"postalcode"`
	Tel         string             `bson:"tel" json:"tel"`
	Region      string             `bson:"region" json:"region"`
	Description string             `bson:"description" json:"description,omitempty"`
}
