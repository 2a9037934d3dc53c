package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/relwatch/relwatch/internal/models"
)

// Follower pairs a user with their notification preferences, as consumed by
// the dispatcher's fan-out.
type Follower struct {
	User    models.User
	Profile models.UserProfile
}

type UserRepository interface {
	// CreateWithProfile atomically creates the user row and its profile with
	// default preferences (all types on, master switch on, email unverified).
	CreateWithProfile(ctx context.Context, email, password string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetProfile(ctx context.Context, userID int64) (models.UserProfile, error)
	// FollowersWithPrefs returns every user following the artist together
	// with their notification preferences.
	FollowersWithPrefs(ctx context.Context, artistID int64) ([]Follower, error)
	Follow(ctx context.Context, userID, artistID int64) error
	Unfollow(ctx context.Context, userID, artistID int64) error
	SetNotify(ctx context.Context, userID int64, notify bool) error
	// Purge removes the user and every record hanging off it.
	Purge(ctx context.Context, userID int64) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const activationCodeLength = 16

// Ambiguous characters (0/o, 1/l) are left out; codes end up in emails.
const activationCodeChars = "23456789abcdefghijkmnpqrstuvwxyz"

func generateCode() (string, error) {
	var b strings.Builder
	for i := 0; i < activationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(activationCodeChars))))
		if err != nil {
			return "", err
		}
		b.WriteByte(activationCodeChars[n.Int64()])
	}
	return b.String(), nil
}

func (r *userRepository) CreateWithProfile(ctx context.Context, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	code, err := generateCode()
	if err != nil {
		return models.User{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	user := models.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: string(hash)}
	const insertUser = `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, insertUser, user.Email, user.PasswordHash).Scan(&user.ID); err != nil {
		return models.User{}, err
	}

	const insertProfile = `
		INSERT INTO user_profiles (
			user_id, notify, notify_album, notify_single, notify_ep, notify_live,
			notify_compilation, notify_remix, notify_other, email_verified, activation_code
		)
		VALUES ($1, TRUE, TRUE, TRUE, TRUE, TRUE, TRUE, TRUE, TRUE, FALSE, $2)`
	if _, err := tx.ExecContext(ctx, insertProfile, user.ID, code); err != nil {
		return models.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("commit user creation: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT id, email, password_hash FROM users WHERE email = $1`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).
		Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		return models.User{}, translateNoRows(err)
	}
	return user, nil
}

const profileColumns = `user_id, notify, notify_album, notify_single, notify_ep, notify_live,
	notify_compilation, notify_remix, notify_other, email_verified, activation_code`

func (r *userRepository) GetProfile(ctx context.Context, userID int64) (models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *userRepository) FollowersWithPrefs(ctx context.Context, artistID int64) ([]Follower, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, ` + prefixedProfileColumns("p") + `
		FROM users u
		JOIN user_artists ua ON ua.user_id = u.id
		JOIN user_profiles p ON p.user_id = u.id
		WHERE ua.artist_id = $1`
	rows, err := r.db.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var followers []Follower
	for rows.Next() {
		var f Follower
		if err := rows.Scan(
			&f.User.ID, &f.User.Email, &f.User.PasswordHash,
			&f.Profile.UserID, &f.Profile.Notify, &f.Profile.NotifyAlbum, &f.Profile.NotifySingle,
			&f.Profile.NotifyEP, &f.Profile.NotifyLive, &f.Profile.NotifyCompilation,
			&f.Profile.NotifyRemix, &f.Profile.NotifyOther, &f.Profile.EmailVerified,
			&f.Profile.ActivationCode,
		); err != nil {
			return nil, err
		}
		followers = append(followers, f)
	}
	return followers, rows.Err()
}

func (r *userRepository) Follow(ctx context.Context, userID, artistID int64) error {
	const query = `
		INSERT INTO user_artists (user_id, artist_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, artist_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, userID, artistID)
	return err
}

func (r *userRepository) Unfollow(ctx context.Context, userID, artistID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_artists WHERE user_id = $1 AND artist_id = $2`, userID, artistID)
	return err
}

func (r *userRepository) SetNotify(ctx context.Context, userID int64, notify bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE user_profiles SET notify = $2 WHERE user_id = $1`, userID, notify)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Purge(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM stars WHERE user_id = $1`,
		`DELETE FROM user_artists WHERE user_id = $1`,
		`DELETE FROM user_profiles WHERE user_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, query := range steps {
		if _, err := tx.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("purge user %d: %w", userID, err)
		}
	}

	return tx.Commit()
}

func prefixedProfileColumns(alias string) string {
	cols := []string{
		"user_id", "notify", "notify_album", "notify_single", "notify_ep", "notify_live",
		"notify_compilation", "notify_remix", "notify_other", "email_verified", "activation_code",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanProfile(scanner interface {
	Scan(dest ...interface{}) error
}) (models.UserProfile, error) {
	var p models.UserProfile
	if err := scanner.Scan(
		&p.UserID, &p.Notify, &p.NotifyAlbum, &p.NotifySingle, &p.NotifyEP, &p.NotifyLive,
		&p.NotifyCompilation, &p.NotifyRemix, &p.NotifyOther, &p.EmailVerified, &p.ActivationCode,
	); err != nil {
		return models.UserProfile{}, translateNoRows(err)
	}
	return p, nil
}
