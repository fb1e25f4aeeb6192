package database

import (
	"context"
	"go-gin-flight-booking/config"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitMongo 連線並 ping，回傳設定中指定的 database
func InitMongo(config *config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(config.URI)
	if config.User != "" && config.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: config.User,
			Password: config.Password,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(config.Database), nil
}
