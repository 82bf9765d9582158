package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("seller@example.com"))
	assert.False(t, IsValidEmail("seller@example"))
	assert.False(t, IsValidEmail("seller @example.com"))
	assert.False(t, IsValidEmail(""))
}

func TestIsValidMediaRef(t *testing.T) {
	assert.True(t, IsValidMediaRef("listings/4c1f/1700000000-photo.jpg"))
	assert.True(t, IsValidMediaRef("photo.png"))
	assert.False(t, IsValidMediaRef(""))
	assert.False(t, IsValidMediaRef("/etc/passwd"))
	assert.False(t, IsValidMediaRef("listings/../secrets"))
	assert.False(t, IsValidMediaRef("https://cdn.example.com/a.jpg"))
	assert.False(t, IsValidMediaRef("listings//a.jpg"))
}

func TestIsOwnedMediaRef(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	assert.True(t, IsOwnedMediaRef(ListingMediaPrefix(owner)+"1700000000-photo.jpg", owner))
	assert.False(t, IsOwnedMediaRef(ListingMediaPrefix(other)+"1700000000-photo.jpg", owner))
	assert.False(t, IsOwnedMediaRef("listings/"+owner.String()+"-x/a.jpg", owner))
	assert.False(t, IsOwnedMediaRef(ListingMediaPrefix(owner)+"../"+other.String()+"/a.jpg", owner))
	assert.False(t, IsOwnedMediaRef("photo.png", owner))
	assert.False(t, IsOwnedMediaRef(ListingMediaPrefix(uuid.Nil)+"a.jpg", uuid.Nil))
}
