package question

import "errors"

// Category identifies the shape of a question and of its answers.
type Category string

const (
	CategoryJournal      Category = "journal"
	CategoryLedger       Category = "ledger"
	CategoryTrialBalance Category = "trial_balance"
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{CategoryJournal, CategoryLedger, CategoryTrialBalance}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryJournal, CategoryLedger, CategoryTrialBalance:
		return true
	}
	return false
}

// DisplayName returns the Japanese exam-section name for the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryJournal:
		return "仕訳"
	case CategoryLedger:
		return "帳簿"
	case CategoryTrialBalance:
		return "試算表"
	}
	return string(c)
}

var ErrUnknownCategory = errors.New("unknown question category")

// Question is a read-only content record. The correct answer and the
// expected input shape are fixed by Category; submissions for a question
// must decode into the matching AnswerPayload variant.
type Question struct {
	ID          string
	Category    Category
	Difficulty  int // 1..3
	Prompt      string
	Explanation string
	Correct     CorrectAnswer
}

// AmountLine is one (account, amount) pair on a single side of an entry.
type AmountLine struct {
	Account string `json:"account" db:"account"`
	Amount  int64  `json:"amount" db:"amount"`
}

// LedgerRow is one dated row in a ledger account, carrying the
// counterpart account and the amount on exactly one side.
type LedgerRow struct {
	Date         string `json:"date"`
	Account      string `json:"account"`
	DebitAmount  int64  `json:"debit_amount"`
	CreditAmount int64  `json:"credit_amount"`
}

// BalanceRow is one trial-balance line: an account with its balance on
// the debit or the credit side, never both.
type BalanceRow struct {
	Account      string `json:"account"`
	DebitAmount  int64  `json:"debit_amount"`
	CreditAmount int64  `json:"credit_amount"`
}

// JournalAnswer holds the debit and credit lines of a journal entry.
type JournalAnswer struct {
	Debits  []AmountLine `json:"debits"`
	Credits []AmountLine `json:"credits"`
}

// LedgerAnswer holds the rows of a ledger-entry answer.
type LedgerAnswer struct {
	Rows []LedgerRow `json:"rows"`
}

// TrialBalanceAnswer holds the rows of a trial-balance answer.
type TrialBalanceAnswer struct {
	Rows []BalanceRow `json:"rows"`
}

// CorrectAnswer is the canonical answer for a question. Exactly one
// variant is set, matching Question.Category; the evaluator dispatches
// on the category tag rather than probing which field happens to be
// populated.
type CorrectAnswer struct {
	Journal      *JournalAnswer      `json:"journal,omitempty"`
	Ledger       *LedgerAnswer       `json:"ledger,omitempty"`
	TrialBalance *TrialBalanceAnswer `json:"trial_balance,omitempty"`
}

// AnswerPayload is a submitted answer. It mirrors CorrectAnswer: the
// variant named by the question's category must be set.
type AnswerPayload struct {
	Journal      *JournalAnswer      `json:"journal,omitempty"`
	Ledger       *LedgerAnswer       `json:"ledger,omitempty"`
	TrialBalance *TrialBalanceAnswer `json:"trial_balance,omitempty"`
}
