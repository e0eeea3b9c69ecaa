package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/student-portfolio-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "portal",
		Password: "secret",
		Name:     "portfolio",
		SSLMode:  "require",
	})

	assert.Equal(t, "host=db port=5433 user=portal password=secret dbname=portfolio sslmode=require", dsn)
}

func TestDSNCarriesNotifyChannel(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:          "db",
		Port:          5432,
		User:          "portal",
		Password:      "secret",
		Name:          "portfolio",
		SSLMode:       "disable",
		NotifyChannel: "gallery_events",
	})

	assert.Equal(t, "host=db port=5432 user=portal password=secret dbname=portfolio sslmode=disable options='-c portfolio.channel=gallery_events'", dsn)
}
