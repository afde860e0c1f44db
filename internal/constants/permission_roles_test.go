package constants

import (
	"testing"

	roles "autostand-backend/internal/pkg/constants"

	"github.com/stretchr/testify/assert"
)

func TestAllowedAny(t *testing.T) {
	assert.False(t, AllowedAny(ReviewReports, roles.RolesFor(false, false)))
	assert.False(t, AllowedAny(ReviewReports, roles.RolesFor(true, false)))
	assert.True(t, AllowedAny(ReviewReports, roles.RolesFor(false, true)))
	assert.True(t, AllowedAny(PublishListing, roles.RolesFor(true, false)))
	assert.False(t, AllowedAny("unknown_permission", roles.RolesFor(true, true)))
}

func TestPermissionRolesAreKnown(t *testing.T) {
	for perm, allowed := range PermissionRoles {
		assert.NotEmpty(t, allowed, perm)
		for _, r := range allowed {
			assert.True(t, roles.IsValidRole(r), "%s grants unknown role %s", perm, r)
		}
	}
}
