package notifications

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notification type tags.
const (
	TypeReservationRequest    = "pedido_reserva"
	TypeReservationApproved   = "reserva_aprovada"
	TypeReservationRefused    = "reserva_recusada"
	TypeReportUpdated         = "denuncia_atualizada"
	TypeReportReceivedUpdated = "denuncia_recebida_atualizada"
	TypeNewMessage            = "mensagem_nova"
	TypeFavoriteBrand         = "nova_marca_favorita"
	TypeVisitRequest          = "pedido_visita"
	TypeNewOrder              = "nova_encomenda"
	TypeListingModerated      = "anuncio_moderado"
)

const (
	unreadPageSize  = 10
	pageSize        = 50
	unreadKeyPrefix = "notifications:unread:"
	unreadTTL       = 5 * time.Minute
)

// Notice is one message to enqueue for a user.
type Notice struct {
	RecipientID uuid.UUID
	Type        string
	Title       string
	Message     string
	ListingID   *uuid.UUID
}

// Sink persists notices. db is the caller's transaction when there is one.
type Sink interface {
	Notify(ctx context.Context, db *gorm.DB, n Notice) error
}

// Service is the persisted inbox. It implements Sink.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

var errEmptyNotice = errors.New("notification requires recipient, type, title and message")

// Notify inserts one unread notification using db.
func (s *Service) Notify(ctx context.Context, db *gorm.DB, n Notice) error {
	if n.RecipientID == uuid.Nil || n.Type == "" || strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return errEmptyNotice
	}
	if db == nil {
		db = s.DB
	}
	row := &domain.Notification{
		RecipientID: n.RecipientID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		ListingID:   n.ListingID,
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	s.invalidate(ctx, n.RecipientID)
	if d, ok := ctx.Value(deferredKey{}).(*deferred); ok {
		recipient := n.RecipientID
		d.add(func() { s.invalidate(context.WithoutCancel(ctx), recipient) })
	}
	return nil
}

type deferredKey struct{}

type deferred struct {
	mu  sync.Mutex
	fns []func()
}

func (d *deferred) add(fn func()) {
	d.mu.Lock()
	d.fns = append(d.fns, fn)
	d.mu.Unlock()
}

// Deferred returns a context under which Notify repeats its unread-count invalidation
// when flush runs. Call flush after the enclosing transaction has returned so a count
// cached while the insert was still uncommitted does not survive the commit.
func Deferred(ctx context.Context) (context.Context, func()) {
	d := &deferred{}
	flush := func() {
		d.mu.Lock()
		fns := d.fns
		d.fns = nil
		d.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	return context.WithValue(ctx, deferredKey{}, d), flush
}

// NotifyBestEffort delivers n inside a savepoint of tx. A failure rolls back only the
// savepoint and is logged; the caller's transition is unaffected.
func NotifyBestEffort(ctx context.Context, sink Sink, tx *gorm.DB, n Notice) {
	if sink == nil {
		return
	}
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sink.Notify(ctx, sp, n)
	})
	if err != nil {
		log.Error().Err(err).
			Str("recipient_id", n.RecipientID.String()).
			Str("type", n.Type).
			Msg("notification not delivered")
	}
}

// List returns the actor's notifications, newest first: the 10 latest unread, or the 50 latest overall.
func (s *Service) List(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]domain.Notification, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	q := s.DB.WithContext(ctx).Where("recipient_id = ?", actor.UserID)
	limit := pageSize
	if unreadOnly {
		q = q.Where("is_read = ?", false)
		limit = unreadPageSize
	}
	out := []domain.Notification{}
	if err := q.Order(`"createdAt" DESC`).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks one notification (id set) or all of the actor's notifications as read.
// Returns how many rows changed.
func (s *Service) MarkRead(ctx context.Context, actor domain.Actor, id *uuid.UUID) (int64, error) {
	if actor.Anonymous() {
		return 0, apperror.ErrUnauthenticated
	}
	q := s.DB.WithContext(ctx).Model(&domain.Notification{}).Where("recipient_id = ?", actor.UserID)
	if id != nil {
		var n domain.Notification
		err := s.DB.WithContext(ctx).Where("notification_id = ? AND recipient_id = ?", *id, actor.UserID).First(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperror.NotFound("Notification not found")
		}
		if err != nil {
			return 0, err
		}
		q = q.Where("notification_id = ?", *id)
	} else {
		q = q.Where("is_read = ?", false)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	s.invalidate(ctx, actor.UserID)
	return res.RowsAffected, nil
}

// UnreadCount returns the number of unread notifications, cached in Redis.
func (s *Service) UnreadCount(ctx context.Context, actor domain.Actor) (int64, error) {
	if actor.Anonymous() {
		return 0, apperror.ErrUnauthenticated
	}
	key := unreadKeyPrefix + actor.UserID.String()
	if s.Rdb != nil {
		if v, err := s.Rdb.Get(ctx, key).Result(); err == nil {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", actor.UserID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	if s.Rdb != nil {
		s.Rdb.Set(ctx, key, count, unreadTTL)
	}
	return count, nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.Rdb == nil {
		return
	}
	if err := s.Rdb.Del(ctx, unreadKeyPrefix+userID.String()).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("unread count cache not invalidated")
	}
}
