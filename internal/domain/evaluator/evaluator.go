// Package evaluator decides whether a submitted answer matches a
// question's canonical answer. It is pure: no storage, no clock, the
// same inputs always produce the same result.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/yoshi22/bookkeeping3rd/backend/internal/domain/question"
)

// Result is the verdict for one submission. A submission with
// validation errors is never correct; the errors are data for the
// caller to display, not a failure of the evaluation itself.
type Result struct {
	IsCorrect        bool
	ValidationErrors []string
}

// Evaluate validates the payload against the question's input template
// and, if well-formed, compares it with the canonical answer.
// Validation failures short-circuit: the result is incorrect and
// carries the messages.
func Evaluate(q *question.Question, payload question.AnswerPayload) Result {
	errs := Validate(q, payload)
	if len(errs) > 0 {
		return Result{IsCorrect: false, ValidationErrors: errs}
	}
	return Result{IsCorrect: isCorrect(q, payload)}
}

// Validate checks structural requirements only: the payload variant
// matches the question category, required fields are present, amounts
// are non-negative, and no account appears twice on the same side of a
// single entry. Messages are human-readable and in submission order.
func Validate(q *question.Question, payload question.AnswerPayload) []string {
	switch q.Category {
	case question.CategoryJournal:
		if payload.Journal == nil {
			return []string{"仕訳の解答が入力されていません"}
		}
		return validateJournal(payload.Journal)
	case question.CategoryLedger:
		if payload.Ledger == nil {
			return []string{"帳簿の解答が入力されていません"}
		}
		return validateLedger(payload.Ledger)
	case question.CategoryTrialBalance:
		if payload.TrialBalance == nil {
			return []string{"試算表の解答が入力されていません"}
		}
		return validateTrialBalance(payload.TrialBalance)
	}
	return []string{fmt.Sprintf("未対応のカテゴリです: %s", q.Category)}
}

func validateJournal(a *question.JournalAnswer) []string {
	var errs []string

	if len(a.Debits) == 0 {
		errs = append(errs, "借方を1行以上入力してください")
	}
	if len(a.Credits) == 0 {
		errs = append(errs, "貸方を1行以上入力してください")
	}

	errs = append(errs, validateLines("借方", a.Debits)...)
	errs = append(errs, validateLines("貸方", a.Credits)...)
	return errs
}

// validateLines checks one side of a journal entry: account and amount
// present on every line, amounts non-negative, accounts unique.
func validateLines(side string, lines []question.AmountLine) []string {
	var errs []string
	seen := make(map[string]bool, len(lines))

	for i, line := range lines {
		if line.Account == "" {
			errs = append(errs, fmt.Sprintf("%s%d行目: 勘定科目は必須項目です。プルダウンから選択してください", side, i+1))
		}
		if line.Amount < 0 {
			errs = append(errs, fmt.Sprintf("%s%d行目: 金額は0以上の値を入力してください", side, i+1))
		}
		if line.Account != "" && seen[line.Account] {
			errs = append(errs, fmt.Sprintf("%sで同じ勘定科目を複数回選択することはできません: %s", side, line.Account))
		}
		seen[line.Account] = true
	}
	return errs
}

func validateLedger(a *question.LedgerAnswer) []string {
	var errs []string

	if len(a.Rows) == 0 {
		errs = append(errs, "記入行を1行以上入力してください")
	}
	for i, row := range a.Rows {
		if row.Date == "" {
			errs = append(errs, fmt.Sprintf("%d行目: 日付は必須項目です。「月/日」の形式で入力してください（例: 4/1）", i+1))
		}
		if row.Account == "" {
			errs = append(errs, fmt.Sprintf("%d行目: 相手勘定科目は必須項目です", i+1))
		}
		if row.DebitAmount < 0 || row.CreditAmount < 0 {
			errs = append(errs, fmt.Sprintf("%d行目: 金額は0以上の値を入力してください", i+1))
		}
	}
	return errs
}

func validateTrialBalance(a *question.TrialBalanceAnswer) []string {
	var errs []string

	if len(a.Rows) == 0 {
		errs = append(errs, "勘定科目を1行以上入力してください")
	}
	seen := make(map[string]bool, len(a.Rows))
	for i, row := range a.Rows {
		if row.Account == "" {
			errs = append(errs, fmt.Sprintf("%d行目: 勘定科目は必須項目です", i+1))
		}
		if row.DebitAmount < 0 || row.CreditAmount < 0 {
			errs = append(errs, fmt.Sprintf("%d行目: 金額は0以上の値を入力してください", i+1))
		}
		if row.DebitAmount != 0 && row.CreditAmount != 0 {
			errs = append(errs, fmt.Sprintf("%d行目: 借方と貸方の両方に金額を入力することはできません", i+1))
		}
		if row.Account != "" && seen[row.Account] {
			errs = append(errs, fmt.Sprintf("同じ勘定科目を複数回記入することはできません: %s", row.Account))
		}
		seen[row.Account] = true
	}
	return errs
}

// isCorrect assumes a validated payload and compares it with the
// canonical answer. Strictly boolean: no partial credit.
func isCorrect(q *question.Question, payload question.AnswerPayload) bool {
	switch q.Category {
	case question.CategoryJournal:
		return journalCorrect(q.Correct.Journal, payload.Journal)
	case question.CategoryLedger:
		return ledgerCorrect(q.Correct.Ledger, payload.Ledger)
	case question.CategoryTrialBalance:
		return trialBalanceCorrect(q.Correct.TrialBalance, payload.TrialBalance)
	}
	return false
}

// journalCorrect compares (account, amount) multisets per side, so the
// order lines were entered in never matters. The submission must also
// balance: declared debit total equals declared credit total.
func journalCorrect(want, got *question.JournalAnswer) bool {
	if want == nil || got == nil {
		return false
	}
	if sumLines(got.Debits) != sumLines(got.Credits) {
		return false
	}
	return sameLines(want.Debits, got.Debits) && sameLines(want.Credits, got.Credits)
}

func sumLines(lines []question.AmountLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Amount
	}
	return total
}

func sameLines(want, got []question.AmountLine) bool {
	if len(want) != len(got) {
		return false
	}
	w := sortedLines(want)
	g := sortedLines(got)
	for i := range w {
		if w[i] != g[i] {
			return false
		}
	}
	return true
}

func sortedLines(lines []question.AmountLine) []question.AmountLine {
	out := make([]question.AmountLine, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Amount < out[j].Amount
	})
	return out
}

// ledgerCorrect compares rows after sorting both sides by date then
// account, so input order is irrelevant but every row must find its
// exact counterpart.
func ledgerCorrect(want, got *question.LedgerAnswer) bool {
	if want == nil || got == nil {
		return false
	}
	if len(want.Rows) != len(got.Rows) {
		return false
	}
	w := sortedRows(want.Rows)
	g := sortedRows(got.Rows)
	for i := range w {
		if w[i] != g[i] {
			return false
		}
	}
	return true
}

func sortedRows(rows []question.LedgerRow) []question.LedgerRow {
	out := make([]question.LedgerRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Account < out[j].Account
	})
	return out
}

// trialBalanceCorrect reduces both answers to account → (debit, credit)
// maps and requires them to agree on every account either side names.
func trialBalanceCorrect(want, got *question.TrialBalanceAnswer) bool {
	if want == nil || got == nil {
		return false
	}
	w := balanceMap(want.Rows)
	g := balanceMap(got.Rows)
	if len(w) != len(g) {
		return false
	}
	for account, balance := range w {
		if g[account] != balance {
			return false
		}
	}
	return true
}

type balance struct {
	debit  int64
	credit int64
}

func balanceMap(rows []question.BalanceRow) map[string]balance {
	m := make(map[string]balance, len(rows))
	for _, r := range rows {
		b := m[r.Account]
		b.debit += r.DebitAmount
		b.credit += r.CreditAmount
		m[r.Account] = b
	}
	return m
}
