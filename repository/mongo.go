package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	auth "github.com/hungerlink/go-auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	accountsCollection  = "accounts"
	donationsCollection = "donations"
	requestsCollection  = "requests"
)

// DefaultMongoURI is used when no DSN is configured
const DefaultMongoURI = "mongodb://localhost:27017"

// ConnectMongo dials uri and pings the primary
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = DefaultMongoURI
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "failed to connect to mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.CategoryExternal, "failed to ping mongo")
	}

	return client, nil
}

type geoDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type locationDocument struct {
	Address     string      `bson:"address"`
	Coordinates geoDocument `bson:"coordinates"`
}

func toLocationDocument(l auth.Location) locationDocument {
	return locationDocument{
		Address: l.Address,
		Coordinates: geoDocument{
			Type:        "Point",
			Coordinates: []float64{l.Longitude, l.Latitude},
		},
	}
}

func (d locationDocument) location() auth.Location {
	loc := auth.Location{Address: d.Address}
	if len(d.Coordinates.Coordinates) == 2 {
		loc.Longitude = d.Coordinates.Coordinates[0]
		loc.Latitude = d.Coordinates.Coordinates[1]
	}
	return loc
}

func readError(err error, notFound error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
