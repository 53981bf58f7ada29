package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS vacancies (
	id         INTEGER PRIMARY KEY,
	title      TEXT NOT NULL,
	voice_kind TEXT NOT NULL,
	voice_ref  TEXT NOT NULL,
	taken      INTEGER NOT NULL DEFAULT 0
)
`

// Vacancy is a reservable unit of work, pre-seeded at startup.
type Vacancy struct {
	ID    int64
	Title string
	Voice VoiceRef
	Taken bool
}

// Seed describes a vacancy inserted by Init when its id is absent.
type Seed struct {
	ID    int64
	Title string
	Voice VoiceRef
}

// Store owns the vacancy table. It is the only shared mutable resource of
// the bot; the contested path goes through Reserve, which is atomic.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the sqlite database at path and prepares it for concurrent use.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// WAL keeps reads from blocking the reservation writes.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "exec %q", pragma)
		}
	}

	logger.Debug("database opened", zap.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the schema if absent and inserts the seed vacancies that are
// missing. It is idempotent: existing rows keep their titles and flags.
func (s *Store) Init(ctx context.Context, seeds []Seed) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create vacancies table")
	}

	inserted := 0
	for _, seed := range seeds {
		res, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO vacancies (id, title, voice_kind, voice_ref, taken) VALUES (?, ?, ?, ?, 0)",
			seed.ID, seed.Title, seed.Voice.Kind, seed.Voice.Value,
		)
		if err != nil {
			return errors.Wrapf(err, "seed vacancy %d", seed.ID)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrapf(err, "seed vacancy %d", seed.ID)
		}
		inserted += int(n)
	}

	s.logger.Info("store initialized",
		zap.Int("seeds", len(seeds)),
		zap.Int("inserted", inserted),
	)

	return nil
}

// ListAvailable returns the vacancies that are still free, in id order.
func (s *Store) ListAvailable(ctx context.Context) ([]Vacancy, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, voice_kind, voice_ref, taken FROM vacancies WHERE taken = 0 ORDER BY id",
	)
	if err != nil {
		return nil, errors.Wrap(err, "list available vacancies")
	}
	defer rows.Close()

	var vacancies []Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, err
		}
		vacancies = append(vacancies, v)
	}

	return vacancies, errors.Wrap(rows.Err(), "list available vacancies")
}

// ListAll returns every vacancy regardless of the taken flag, in id order.
// Used by the operator console.
func (s *Store) ListAll(ctx context.Context) ([]Vacancy, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, voice_kind, voice_ref, taken FROM vacancies ORDER BY id",
	)
	if err != nil {
		return nil, errors.Wrap(err, "list vacancies")
	}
	defer rows.Close()

	var vacancies []Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, err
		}
		vacancies = append(vacancies, v)
	}

	return vacancies, errors.Wrap(rows.Err(), "list vacancies")
}

// Get returns a vacancy by id, ErrNotFound when the id is absent.
func (s *Store) Get(ctx context.Context, id int64) (Vacancy, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, voice_kind, voice_ref, taken FROM vacancies WHERE id = ?", id,
	)

	v, err := scanVacancy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Vacancy{}, errors.Wrapf(ErrNotFound, "vacancy %d", id)
	}

	return v, err
}

// Reserve atomically flips a vacancy from available to taken and returns the
// resulting record. Under concurrent callers racing on the same id exactly
// one wins; the rest get ErrAlreadyTaken. A missing id is ErrNotFound.
//
// The flip is a compare-and-set UPDATE inside a single transaction, so a
// failure on any path leaves the row untouched.
func (s *Store) Reserve(ctx context.Context, id int64) (Vacancy, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Vacancy{}, errors.Wrap(err, "begin reserve tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE vacancies SET taken = 1 WHERE id = ? AND taken = 0", id,
	)
	if err != nil {
		return Vacancy{}, errors.Wrapf(err, "reserve vacancy %d", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Vacancy{}, errors.Wrapf(err, "reserve vacancy %d", id)
	}

	if affected == 0 {
		// Lost the race or the id never existed. Look at the row to tell
		// the two apart; the source collapses them, we keep the distinction.
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM vacancies WHERE id = ?)", id,
		).Scan(&exists)
		if err != nil {
			return Vacancy{}, errors.Wrapf(err, "reserve vacancy %d", id)
		}

		if !exists {
			return Vacancy{}, errors.Wrapf(ErrNotFound, "vacancy %d", id)
		}

		return Vacancy{}, errors.Wrapf(ErrAlreadyTaken, "vacancy %d", id)
	}

	row := tx.QueryRowContext(ctx,
		"SELECT id, title, voice_kind, voice_ref, taken FROM vacancies WHERE id = ?", id,
	)
	v, err := scanVacancy(row)
	if err != nil {
		return Vacancy{}, err
	}

	if err := tx.Commit(); err != nil {
		return Vacancy{}, errors.Wrapf(err, "commit reserve of vacancy %d", id)
	}

	s.logger.Info("vacancy reserved", zap.Int64("vacancy_id", v.ID), zap.String("title", v.Title))

	return v, nil
}

// UpdateVoiceRef overwrites the voice reference of a vacancy. An absent id
// is a silent no-op, as the admin workflow validates ids beforehand.
func (s *Store) UpdateVoiceRef(ctx context.Context, id int64, ref VoiceRef) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE vacancies SET voice_kind = ?, voice_ref = ? WHERE id = ?",
		ref.Kind, ref.Value, id,
	)
	if err != nil {
		return errors.Wrapf(err, "update voice ref of vacancy %d", id)
	}

	s.logger.Info("voice ref updated", zap.Int64("vacancy_id", id), zap.String("voice", ref.String()))

	return nil
}

// ResetAll makes every vacancy available again, including ones never taken.
func (s *Store) ResetAll(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, "UPDATE vacancies SET taken = 0")
	if err != nil {
		return errors.Wrap(err, "reset vacancies")
	}

	n, _ := res.RowsAffected()
	s.logger.Info("vacancies reset", zap.Int64("rows", n))

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVacancy(row scanner) (Vacancy, error) {
	var (
		v     Vacancy
		kind  string
		taken int
	)

	if err := row.Scan(&v.ID, &v.Title, &kind, &v.Voice.Value, &taken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Vacancy{}, err
		}
		return Vacancy{}, errors.Wrap(err, "scan vacancy")
	}

	v.Voice.Kind = VoiceKind(kind)
	v.Taken = taken != 0

	return v, nil
}

// DefaultSeeds builds the seed set from configured titles, ids starting at 1.
// The voice clip of each seed points at the conventional local path.
func DefaultSeeds(titles []string, voicesDir string) []Seed {
	seeds := make([]Seed, 0, len(titles))
	for i, title := range titles {
		id := int64(i + 1)
		seeds = append(seeds, Seed{
			ID:    id,
			Title: title,
			Voice: LocalVoice(DefaultVoicePath(voicesDir, id)),
		})
	}

	return seeds
}
