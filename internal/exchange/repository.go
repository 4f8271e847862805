package exchange

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/database"
	"github.com/swapbnb/api/internal/message"
)

type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) Create(ctx context.Context, ex *Exchange) error {
	row := mapModelToDB(ex)
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create exchange: %w", err)
	}
	*ex = *mapDBToModel(row)
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Exchange, error) {
	return getExchange(ctx, r.db.NewSelect(), id)
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Exchange, error) {
	var rows []database.Exchange
	q := r.db.NewSelect().Model(&rows)

	switch filter.Role {
	case RoleRequester:
		q = q.Where("requester_id = ?", userID)
	case RoleHost:
		q = q.Where("host_id = ?", userID)
	default:
		q = q.Where("(requester_id = ? OR host_id = ?)", userID, userID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	out := make([]Exchange, 0, len(rows))
	for i := range rows {
		out = append(out, *mapDBToModel(&rows[i]))
	}
	return out, nil
}

func (r *Repository) HomeOwner(ctx context.Context, homeID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.NewSelect().
		Model((*database.Home)(nil)).
		Column("owner_id").
		Where("id = ?", homeID).
		Scan(ctx, &ownerID)
	if err != nil {
		if database.IsNoRows(err) {
			return uuid.Nil, ErrHomeNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to get home owner: %w", err)
	}
	return ownerID, nil
}

func (r *Repository) IdentityStatus(ctx context.Context, userID uuid.UUID) (string, error) {
	var status string
	err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Column("identity_status").
		Where("id = ?", userID).
		Scan(ctx, &status)
	if err != nil {
		return "", fmt.Errorf("failed to get identity status: %w", err)
	}
	return status, nil
}

func (r *Repository) UpdateIdentityStatus(ctx context.Context, userID uuid.UUID, status string) (int, error) {
	closed := bun.In([]string{StatusConfirmed, StatusRejected, StatusCancelled})
	total := 0

	for _, side := range []string{"requester", "host"} {
		res, err := r.db.NewUpdate().
			Model((*database.Exchange)(nil)).
			Set("? = ?", bun.Ident(side+"_identity_status"), status).
			Set("updated_at = ?", time.Now()).
			Where("? = ?", bun.Ident(side+"_id"), userID).
			Where("status NOT IN (?)", closed).
			Exec(ctx)
		if err != nil {
			return total, fmt.Errorf("failed to sync %s identity status: %w", side, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

type txRepository struct {
	tx bun.Tx
}

func (t *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Exchange, error) {
	return getExchange(ctx, t.tx.NewSelect().For("UPDATE"), id)
}

func (t *txRepository) Update(ctx context.Context, ex *Exchange, from string) error {
	ex.UpdatedAt = time.Now()
	row := mapModelToDB(ex)
	res, err := t.tx.NewUpdate().
		Model(row).
		ExcludeColumn("id", "requester_id", "host_id", "requester_home_id", "host_home_id", "created_at").
		WherePK().
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update exchange: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: exchange is no longer %s", ErrInvalidTransition, from)
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.NewDelete().
		Model((*database.Exchange)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete exchange: %w", err)
	}
	return nil
}

func (t *txRepository) Debit(ctx context.Context, e credits.Entry) (int, error) {
	return credits.Debit(ctx, t.tx, e)
}

func (t *txRepository) Credit(ctx context.Context, e credits.Entry) (int, error) {
	return credits.Credit(ctx, t.tx, e)
}

func (t *txRepository) InsertMessage(ctx context.Context, m *message.Message) error {
	return message.Insert(ctx, t.tx, m)
}

func getExchange(ctx context.Context, q *bun.SelectQuery, id uuid.UUID) (*Exchange, error) {
	var row database.Exchange
	if err := q.Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return mapDBToModel(&row), nil
}

func mapDBToModel(row *database.Exchange) *Exchange {
	return &Exchange{
		ID:                      row.ID,
		RequesterID:             row.RequesterID,
		HostID:                  row.HostID,
		RequesterHomeID:         row.RequesterHomeID,
		HostHomeID:              row.HostHomeID,
		StartDate:               row.StartDate,
		EndDate:                 row.EndDate,
		Message:                 row.Message,
		Status:                  row.Status,
		RequesterCreditsPaid:    row.RequesterCreditsPaid,
		HostCreditsPaid:         row.HostCreditsPaid,
		RequesterPaymentSession: row.RequesterPaymentSession,
		HostPaymentSession:      row.HostPaymentSession,
		RequesterIdentityStatus: row.RequesterIdentityStatus,
		HostIdentityStatus:      row.HostIdentityStatus,
		VideocallScheduledAt:    row.VideocallScheduledAt,
		VideocallRoomURL:        row.VideocallRoomURL,
		VideocallCompletedAt:    row.VideocallCompletedAt,
		AcceptedAt:              row.AcceptedAt,
		ConfirmedAt:             row.ConfirmedAt,
		RejectedAt:              row.RejectedAt,
		CancelledAt:             row.CancelledAt,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}
}

func mapModelToDB(ex *Exchange) *database.Exchange {
	return &database.Exchange{
		ID:                      ex.ID,
		RequesterID:             ex.RequesterID,
		HostID:                  ex.HostID,
		RequesterHomeID:         ex.RequesterHomeID,
		HostHomeID:              ex.HostHomeID,
		StartDate:               ex.StartDate,
		EndDate:                 ex.EndDate,
		Message:                 ex.Message,
		Status:                  ex.Status,
		RequesterCreditsPaid:    ex.RequesterCreditsPaid,
		HostCreditsPaid:         ex.HostCreditsPaid,
		RequesterPaymentSession: ex.RequesterPaymentSession,
		HostPaymentSession:      ex.HostPaymentSession,
		RequesterIdentityStatus: ex.RequesterIdentityStatus,
		HostIdentityStatus:      ex.HostIdentityStatus,
		VideocallScheduledAt:    ex.VideocallScheduledAt,
		VideocallRoomURL:        ex.VideocallRoomURL,
		VideocallCompletedAt:    ex.VideocallCompletedAt,
		AcceptedAt:              ex.AcceptedAt,
		ConfirmedAt:             ex.ConfirmedAt,
		RejectedAt:              ex.RejectedAt,
		CancelledAt:             ex.CancelledAt,
		CreatedAt:               ex.CreatedAt,
		UpdatedAt:               ex.UpdatedAt,
	}
}
