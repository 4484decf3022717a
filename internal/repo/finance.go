package repo

import (
	"context"
	"database/sql"

	"sitefeed/internal/domain"
)

const invoiceColumns = `id,invoice_number,COALESCE(client_name,''),amount,balance,issue_date,due_date,status,COALESCE(memo,''),project_id`

func scanInvoice(row scanner) (domain.Invoice, error) {
	var (
		inv       domain.Invoice
		issue     string
		due, proj sql.NullString
	)
	if err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientName, &inv.Amount, &inv.Balance,
		&issue, &due, &inv.Status, &inv.Memo, &proj); err != nil {
		return inv, err
	}
	var err error
	if inv.IssueDate, err = parseDate(issue); err != nil {
		return inv, badField("invoice", inv.ID, "issue_date", err)
	}
	if inv.DueDate, err = optionalDate(due); err != nil {
		return inv, badField("invoice", inv.ID, "due_date", err)
	}
	inv.ProjectID = stringPtr(proj)
	return inv, nil
}

func (r Repo) queryInvoices(ctx context.Context, where string, args ...any) ([]domain.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices `+where+` ORDER BY issue_date DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			r.skipRow("invoice", err)
			continue
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

func (r Repo) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return r.queryInvoices(ctx, "")
}

func (r Repo) ProjectInvoices(ctx context.Context, projectID string) ([]domain.Invoice, error) {
	return r.queryInvoices(ctx, "WHERE project_id=?", projectID)
}

func (r Repo) InsertInvoice(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO invoices(id,invoice_number,client_name,amount,balance,issue_date,due_date,status,memo,project_id) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		inv.ID, inv.InvoiceNumber, nullable(inv.ClientName), inv.Amount, inv.Balance,
		formatDate(inv.IssueDate), nullableDate(inv.DueDate), inv.Status, nullable(inv.Memo), nullableStringPtr(inv.ProjectID))
	return err
}

func (r Repo) ListBills(ctx context.Context) ([]domain.Bill, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,vendor_name,amount,balance,due_date,status,project_id FROM bills ORDER BY due_date IS NULL, due_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Bill
	for rows.Next() {
		var (
			b         domain.Bill
			due, proj sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.VendorName, &b.Amount, &b.Balance, &due, &b.Status, &proj); err != nil {
			r.skipRow("bill", err)
			continue
		}
		if b.DueDate, err = optionalDate(due); err != nil {
			r.skipRow("bill", badField("bill", b.ID, "due_date", err))
			continue
		}
		b.ProjectID = stringPtr(proj)
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r Repo) InsertBill(ctx context.Context, tx *sql.Tx, b domain.Bill) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO bills(id,vendor_name,amount,balance,due_date,status,project_id) VALUES (?,?,?,?,?,?,?)`,
		b.ID, b.VendorName, b.Amount, b.Balance, nullableDate(b.DueDate), b.Status, nullableStringPtr(b.ProjectID))
	return err
}

func (r Repo) queryCosts(ctx context.Context, where string, args ...any) ([]domain.ProjectCost, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,description,amount,cost_date,category,COALESCE(vendor,'') FROM project_costs `+where+` ORDER BY cost_date DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProjectCost
	for rows.Next() {
		var (
			c    domain.ProjectCost
			date string
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Description, &c.Amount, &date, &c.Category, &c.Vendor); err != nil {
			r.skipRow("cost", err)
			continue
		}
		if c.CostDate, err = parseDate(date); err != nil {
			r.skipRow("cost", badField("cost", c.ID, "cost_date", err))
			continue
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) ListProjectCosts(ctx context.Context) ([]domain.ProjectCost, error) {
	return r.queryCosts(ctx, "")
}

func (r Repo) ProjectCosts(ctx context.Context, projectID string) ([]domain.ProjectCost, error) {
	return r.queryCosts(ctx, "WHERE project_id=?", projectID)
}

func (r Repo) InsertProjectCost(ctx context.Context, tx *sql.Tx, c domain.ProjectCost) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO project_costs(id,project_id,description,amount,cost_date,category,vendor) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.ProjectID, c.Description, c.Amount, formatDate(c.CostDate), c.Category, nullable(c.Vendor))
	return err
}
