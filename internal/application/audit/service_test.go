package audit

import (
	"context"
	"encoding/json"
	"testing"

	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	ctx := context.Background()

	admin := domain.User{Name: "Dora", Surname: "Admin", Username: "dora", Email: "dora@example.com", PasswordHash: "x", Admin: true}
	require.NoError(t, db.Create(&admin).Error)

	_, err = Record(ctx, db, admin.Actor(), Entry{
		Type:        domain.ActionUserBlock,
		Description: "Bloqueou utilizador",
		Payload:     map[string]interface{}{"reason": "spam"},
	})
	require.NoError(t, err)
	_, err = Record(ctx, db, admin.Actor(), Entry{Type: domain.ActionAdminPromote, Description: "Promoveu"})
	require.NoError(t, err)

	svc := &Service{DB: db}
	all, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	blocks, err := svc.List(ctx, domain.ActionUserBlock, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.NotNil(t, blocks[0].Admin)
	assert.Equal(t, "Dora", blocks[0].Admin.Name)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(blocks[0].Payload, &payload))
	assert.Equal(t, "spam", payload["reason"])
}
