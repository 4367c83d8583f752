package load

import (
	"context"
	"fmt"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"jsonload/internal/warehouse"
)

// SQLStep runs statements in order inside one transaction. The first
// failing statement aborts the rest.
type SQLStep struct {
	log        *zap.Logger
	db         warehouse.Executor
	statements []Statement
}

// NewSQLStep returns a step running statements on db.
func NewSQLStep(log *zap.Logger, db warehouse.Executor, statements ...Statement) *SQLStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStep{
		log:        log.Named("sql"),
		db:         db,
		statements: append([]Statement(nil), statements...),
	}
}

// Run executes the statements and commits.
func (s *SQLStep) Run(ctx context.Context) error {
	if err := s.execute(ctx); err != nil {
		return err
	}
	return Error.Wrap(s.db.Commit())
}

// Validate executes the statements and rolls back.
func (s *SQLStep) Validate(ctx context.Context) error {
	err := s.execute(ctx)
	return errs.Combine(err, Error.Wrap(s.db.Rollback()))
}

func (s *SQLStep) execute(ctx context.Context) error {
	if err := s.db.Open(ctx); err != nil {
		return Error.Wrap(err)
	}
	for i, stmt := range s.statements {
		query, args := stmt.Render()
		s.log.Debug("exec", zap.Int("n", i), zap.Stringer("statement", stmt))
		if err := s.db.Exec(ctx, query, args...); err != nil {
			return Error.Wrap(fmt.Errorf("statement %d (%s): %w", i, stmt, err))
		}
	}
	return nil
}

func (s *SQLStep) String() string {
	return fmt.Sprintf("sql(%d statements)", len(s.statements))
}
