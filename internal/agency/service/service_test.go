package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateUnmarshal(t *testing.T) {
	var in struct {
		Start *Date `json:"start"`
		Due   *Date `json:"due"`
		None  *Date `json:"none"`
	}
	err := json.Unmarshal([]byte(`{"start":"2024-01-01","due":"2024-03-05T22:15:00+03:00","none":null}`), &in)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", in.Start.Ptr().Format(dateLayout))
	assert.Equal(t, "2024-03-05", in.Due.Ptr().Format(dateLayout))
	assert.Nil(t, in.None.Ptr())

	out, err := json.Marshal(in.Start)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-01"`, string(out))
}

func TestDateUnmarshalKeepsOffsetDate(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-06T00:30:00+03:00"`), &d))
	assert.Equal(t, "2024-03-06", d.Ptr().Format(dateLayout))
	assert.Equal(t, time.UTC, d.Ptr().Location())

	require.NoError(t, json.Unmarshal([]byte(`"2024-03-05T23:30:00-05:00"`), &d))
	assert.Equal(t, "2024-03-05", d.Ptr().Format(dateLayout))
}

func TestDateUnmarshalInvalid(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &d))
}

func TestActorRoles(t *testing.T) {
	assert.True(t, Actor{Role: entity.RoleAdmin}.SeesAllProjects())
	assert.True(t, Actor{Role: entity.RoleManager}.SeesAllProjects())
	assert.False(t, Actor{Role: entity.RoleSpecialist}.SeesAllProjects())
	assert.True(t, Actor{Role: entity.RoleSpecialist}.IsStaff())
	assert.False(t, Actor{Role: entity.RoleCustomer}.IsStaff())
}

func TestNotFoundIsRepositorySentinel(t *testing.T) {
	assert.True(t, errors.Is(ErrNotFound, repository.ErrNotFound))
	assert.EqualError(t, validationf("title is required"), "validation failed: title is required")
}
