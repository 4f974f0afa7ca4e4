package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Settings
// ============================================================

// GetSettings returns the user's settings, or nil when none exist yet.
func (s *Store) GetSettings(ctx context.Context, userID string) (*domain.Settings, error) {
	var (
		st       domain.Settings
		currency string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, currency FROM settings WHERE user_id = ?`, userID).Scan(&st.ID, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	st.Currency = domain.CurrencyCode(currency)
	return &st, nil
}

// CreateSettings inserts settings for a user. A concurrent insert for the
// same user is tolerated and the existing row is returned.
func (s *Store) CreateSettings(ctx context.Context, userID string, currency domain.CurrencyCode) (*domain.Settings, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateSettings")
	defer span.End()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, currency) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, string(currency)); err != nil {
		return nil, fmt.Errorf("insert settings: %w", err)
	}
	return s.GetSettings(ctx, userID)
}

// UpdateSettings applies the non-nil fields of in.
func (s *Store) UpdateSettings(ctx context.Context, userID string, in *domain.SettingsUpdate) (*domain.Settings, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateSettings")
	defer span.End()

	if in.Currency != nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE settings SET currency = ? WHERE user_id = ?`, string(*in.Currency), userID); err != nil {
			return nil, fmt.Errorf("update settings: %w", err)
		}
	}
	return s.GetSettings(ctx, userID)
}

// ============================================================
// Users
// ============================================================

const userColumns = `id, email, COALESCE(full_name, ''), COALESCE(avatar_url, ''), created_at`

func scanUser(row scanner) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return &u, nil
}

func (s *Store) getUserWhere(ctx context.Context, cond string, arg any) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by id, or nil when missing.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

// GetUserByEmail returns a user by email, or nil when missing.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUserWhere(ctx, "email = ?", email)
}

// CreateUser inserts a user. A duplicate email yields domain.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, in *domain.UserSync) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", in.ID))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, avatar_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.Email, nullString(in.FullName), nullString(in.AvatarURL), s.timestamp())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, &domain.ErrConflict{Message: "User already exists"}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, in.ID)
}

// UpdateUser applies the non-nil fields of in.
func (s *Store) UpdateUser(ctx context.Context, id string, in *domain.UserUpdate) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateUser")
	defer span.End()

	var sets []string
	var args []any
	if in.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *in.Email)
	}
	if in.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, nullString(*in.FullName))
	}
	if in.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, nullString(*in.AvatarURL))
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return nil, &domain.ErrConflict{Message: "Email already in use"}
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, nil
		}
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user along with its receipts, items, income and settings.
func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", id))

	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM items WHERE user_id = ?`,
			`DELETE FROM receipts WHERE user_id = ?`,
			`DELETE FROM income WHERE user_id = ?`,
			`DELETE FROM settings WHERE user_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete user data: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("sqlite: user data removed", zap.String("user_id", id))
	}
	return deleted, nil
}
