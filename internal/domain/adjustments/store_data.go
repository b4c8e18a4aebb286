package adjustments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (s *Store) ActiveRequestExists(ctx context.Context, tenantID, employeeID, subjectRef string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM adjustment_requests r
    WHERE r.tenant_id = $1 AND r.employee_id = $2 AND r.subject_ref = $3
      AND (
        r.status IN ($4, $5)
        OR (r.status = $6 AND NOT EXISTS (
          SELECT 1 FROM refunds f
          WHERE f.tenant_id = r.tenant_id AND f.source_request_id = r.id
        ))
      )
  `, tenantID, employeeID, subjectRef, StatusUnderReview, StatusPendingManagerApproval, StatusApproved).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) NextSequence(ctx context.Context, tenantID, prefix string) (int, error) {
	var value int
	err := s.DB.QueryRow(ctx, `
    INSERT INTO adjustment_sequences (tenant_id, prefix, value)
    VALUES ($1, $2, 1)
    ON CONFLICT (tenant_id, prefix) DO UPDATE SET value = adjustment_sequences.value + 1
    RETURNING value
  `, tenantID, prefix).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Store) InsertRequest(ctx context.Context, tenantID string, req AdjustmentRequest) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO adjustment_requests
      (tenant_id, human_id, employee_id, kind, subject_ref, payslip_id, description, claim_type, claimed_amount, status)
    VALUES ($1,$2,$3,$4,$5,NULLIF($6,'')::uuid,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, req.HumanID, req.EmployeeID, req.Kind, req.SubjectRef, req.PayslipID, req.Description, req.ClaimType, req.ClaimedAmount, StatusUnderReview).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const requestColumns = `
    id, human_id, employee_id, kind, subject_ref,
    COALESCE(payslip_id::text, ''), COALESCE(description, ''), COALESCE(claim_type, ''),
    claimed_amount, proposed_amount, final_amount,
    status, COALESCE(rejection_reason, ''), COALESCE(finance_owner_id::text, ''),
    created_at, updated_at`

func scanRequest(row pgx.Row) (AdjustmentRequest, error) {
	var req AdjustmentRequest
	err := row.Scan(
		&req.ID, &req.HumanID, &req.EmployeeID, &req.Kind, &req.SubjectRef,
		&req.PayslipID, &req.Description, &req.ClaimType,
		&req.ClaimedAmount, &req.ProposedAmount, &req.FinalAmount,
		&req.Status, &req.RejectionReason, &req.FinanceOwnerID,
		&req.CreatedAt, &req.UpdatedAt,
	)
	return req, err
}

func (s *Store) GetRequest(ctx context.Context, tenantID, requestID string) (AdjustmentRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM adjustment_requests
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return AdjustmentRequest{}, ErrNotFound
	}
	if err != nil {
		return AdjustmentRequest{}, err
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, tenantID string, filter RequestFilter) (RequestListResult, error) {
	query := `
    SELECT` + requestColumns + `
    FROM adjustment_requests
    WHERE tenant_id = $1
  `
	countQuery := `
    SELECT COUNT(1)
    FROM adjustment_requests
    WHERE tenant_id = $1
  `
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		clause := fmt.Sprintf(" AND employee_id = $%d", len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, filter.EmployeeID)
	}
	if filter.Kind != "" {
		clause := fmt.Sprintf(" AND kind = $%d", len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		clause := fmt.Sprintf(" AND status = $%d", len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, filter.Status)
	}

	var total int
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		total = 0
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	var requests []AdjustmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		requests = append(requests, req)
	}
	return RequestListResult{Requests: requests, Total: total}, nil
}

func (s *Store) ResolutionLog(ctx context.Context, tenantID, requestID string) ([]ResolutionEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, request_id, stage, actor_user_id, actor_role, COALESCE(comment, ''), created_at
    FROM adjustment_resolution_log
    WHERE tenant_id = $1 AND request_id = $2
    ORDER BY created_at, id
  `, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ResolutionEntry
	for rows.Next() {
		var entry ResolutionEntry
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.Stage, &entry.ActorID, &entry.ActorRole, &entry.Comment, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Store) HasResolutionStage(ctx context.Context, tenantID, requestID, stage string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM adjustment_resolution_log
    WHERE tenant_id = $1 AND request_id = $2 AND stage = $3
  `, tenantID, requestID, stage).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ApplyFirstLineApproval moves the request to pending manager approval with
// a status-guarded conditional update. The log entry commits in the same
// transaction, so no append can exist for a transition that never took.
func (s *Store) ApplyFirstLineApproval(ctx context.Context, tenantID, requestID string, proposed float64, entry ResolutionEntry) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE adjustment_requests
    SET proposed_amount = $1, status = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4 AND status = $5
  `, proposed, StatusPendingManagerApproval, tenantID, requestID, StatusUnderReview)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := appendResolutionEntry(ctx, tx, tenantID, requestID, entry); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *Store) ApplyRejection(ctx context.Context, tenantID, requestID, fromStatus, reason string, entry ResolutionEntry) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE adjustment_requests
    SET rejection_reason = $1, status = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4 AND status = $5
  `, reason, StatusRejected, tenantID, requestID, fromStatus)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := appendResolutionEntry(ctx, tx, tenantID, requestID, entry); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *Store) ApplyConfirmation(ctx context.Context, tenantID, requestID string, final float64, entry ResolutionEntry) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE adjustment_requests
    SET final_amount = $1, status = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4 AND status = $5
  `, final, StatusApproved, tenantID, requestID, StatusPendingManagerApproval)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := appendResolutionEntry(ctx, tx, tenantID, requestID, entry); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func appendResolutionEntry(ctx context.Context, tx pgx.Tx, tenantID, requestID string, entry ResolutionEntry) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO adjustment_resolution_log (tenant_id, request_id, stage, actor_user_id, actor_role, comment)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, tenantID, requestID, entry.Stage, entry.ActorID, entry.ActorRole, entry.Comment)
	return err
}

// ClaimFinanceOwner records the finance principal on the request. The NULL
// guard makes the first caller win; later callers are no-ops.
func (s *Store) ClaimFinanceOwner(ctx context.Context, tenantID, requestID, financeStaffID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE adjustment_requests
    SET finance_owner_id = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND finance_owner_id IS NULL
  `, financeStaffID, tenantID, requestID)
	return err
}

func (s *Store) InsertRefund(ctx context.Context, tenantID string, refund Refund) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO refunds (tenant_id, source_request_id, employee_id, finance_staff_id, description, amount, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, refund.SourceRequestID, refund.EmployeeID, refund.FinanceStaffID, refund.Description, refund.Amount, RefundStatusPending).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicatePendingRefund
		}
		return "", err
	}
	return id, nil
}

const refundColumns = `
    id, source_request_id, employee_id, finance_staff_id,
    COALESCE(description, ''), amount, status, created_at, updated_at`

func scanRefund(row pgx.Row) (Refund, error) {
	var refund Refund
	err := row.Scan(
		&refund.ID, &refund.SourceRequestID, &refund.EmployeeID, &refund.FinanceStaffID,
		&refund.Description, &refund.Amount, &refund.Status, &refund.CreatedAt, &refund.UpdatedAt,
	)
	return refund, err
}

func (s *Store) GetRefund(ctx context.Context, tenantID, refundID string) (Refund, error) {
	refund, err := scanRefund(s.DB.QueryRow(ctx, `
    SELECT`+refundColumns+`
    FROM refunds
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, refundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Refund{}, ErrRefundNotFound
	}
	if err != nil {
		return Refund{}, err
	}
	return refund, nil
}

func (s *Store) ListRefunds(ctx context.Context, tenantID string, limit, offset int) (RefundListResult, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM refunds WHERE tenant_id = $1", tenantID).Scan(&total); err != nil {
		total = 0
	}

	rows, err := s.DB.Query(ctx, `
    SELECT`+refundColumns+`
    FROM refunds
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return RefundListResult{}, err
	}
	defer rows.Close()

	var refunds []Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return RefundListResult{}, err
		}
		refunds = append(refunds, refund)
	}
	return RefundListResult{Refunds: refunds, Total: total}, nil
}

func (s *Store) RefundsForRequest(ctx context.Context, tenantID, requestID string) ([]Refund, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+refundColumns+`
    FROM refunds
    WHERE tenant_id = $1 AND source_request_id = $2
    ORDER BY created_at
  `, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	return refunds, nil
}

func (s *Store) AdvanceRefundStatus(ctx context.Context, tenantID, refundID, fromStatus, toStatus string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE refunds
    SET status = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, toStatus, tenantID, refundID, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) PayslipOwnedByEmployee(ctx context.Context, tenantID, payslipID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM payslips
    WHERE tenant_id = $1 AND id = $2 AND employee_id = $3
  `, tenantID, payslipID, employeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) EmployeeUserID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(user_id::text, '')
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, `
    SELECT id
    FROM employees
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return employeeID, err
}
