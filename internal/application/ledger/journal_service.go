package ledger

import (
	"context"

	"github.com/clinicware/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JournalService posts manual transfers between two accounts, e.g.
// moving funds from Cash to Bank or writing off small balances
type JournalService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(scope TransactionScope, logger *zap.Logger) *JournalService {
	return &JournalService{scope: scope, logger: logger}
}

// Post writes a balanced two-line journal posting
func (s *JournalService) Post(ctx context.Context, tenantID uuid.UUID, req JournalRequest) (*JournalResponse, error) {
	journalID := uuid.New()

	posting, err := ledger.JournalPosting(tenantID, journalID, req.DebitAccount, req.CreditAccount, req.Amount, req.Note)
	if err != nil {
		return nil, err
	}

	var resp *JournalResponse
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entries, err := PostEntries(ctx, repos.Accounts(), repos.Entries(), posting)
		if err != nil {
			return err
		}
		resp = &JournalResponse{
			JournalID: journalID,
			Entries:   ToEntryResponses(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("journal posted",
		zap.String("journal_id", journalID.String()),
		zap.String("debit_account", req.DebitAccount),
		zap.String("credit_account", req.CreditAccount),
		zap.String("amount", req.Amount.String()),
	)
	return resp, nil
}
