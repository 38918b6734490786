package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "kick-schedules/a.json", (&S3Archive{}).Key("kick-schedules/a.json"))
	assert.Equal(t, "audit/kick-schedules/a.json", (&S3Archive{prefix: "audit"}).Key("/kick-schedules/a.json"))
}
