package repo

import (
	"context"
	"database/sql"

	"sitefeed/internal/domain"
)

// ListBids orders by due date with undated bids last.
func (r Repo) ListBids(ctx context.Context) ([]domain.Bid, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(client_code,''),COALESCE(client_name,''),due_date,estimated_value,status,COALESCE(location,''),created_at
		FROM bids ORDER BY due_date IS NULL, due_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Bid
	for rows.Next() {
		var (
			b       domain.Bid
			due     sql.NullString
			value   sql.NullFloat64
			created string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.ClientCode, &b.ClientName, &due, &value, &b.Status, &b.Location, &created); err != nil {
			r.skipRow("bid", err)
			continue
		}
		if b.DueDate, err = optionalDate(due); err != nil {
			r.skipRow("bid", badField("bid", b.ID, "due_date", err))
			continue
		}
		if b.CreatedAt, err = parseTime(created); err != nil {
			r.skipRow("bid", badField("bid", b.ID, "created_at", err))
			continue
		}
		b.EstimatedValue = floatPtr(value)
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r Repo) InsertBid(ctx context.Context, tx *sql.Tx, b domain.Bid) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO bids(id,name,client_code,client_name,due_date,estimated_value,status,location,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Name, nullable(b.ClientCode), nullable(b.ClientName), nullableDate(b.DueDate),
		nullableFloat(b.EstimatedValue), b.Status, nullable(b.Location), formatTime(b.CreatedAt))
	return err
}

// ProjectEstimates returns estimates newest first with line items in entry order.
func (r Repo) ProjectEstimates(ctx context.Context, projectID string) ([]domain.Estimate, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,name,total_amount,status,approved_date,created_at FROM estimates WHERE project_id=? ORDER BY created_at DESC, id`, projectID)
	if err != nil {
		return nil, err
	}
	var res []domain.Estimate
	index := map[string]int{}
	for rows.Next() {
		var (
			e        domain.Estimate
			approved sql.NullString
			created  string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Name, &e.TotalAmount, &e.Status, &approved, &created); err != nil {
			r.skipRow("estimate", err)
			continue
		}
		if e.ApprovedDate, err = optionalDate(approved); err != nil {
			r.skipRow("estimate", badField("estimate", e.ID, "approved_date", err))
			continue
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			r.skipRow("estimate", badField("estimate", e.ID, "created_at", err))
			continue
		}
		index[e.ID] = len(res)
		res = append(res, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}

	items, err := r.DB.QueryContext(ctx, `SELECT i.estimate_id,i.id,i.category,COALESCE(i.description,''),i.quantity,COALESCE(i.unit,''),i.unit_price,i.total_price
		FROM estimate_line_items i JOIN estimates e ON e.id=i.estimate_id
		WHERE e.project_id=? ORDER BY i.estimate_id, i.position`, projectID)
	if err != nil {
		return nil, err
	}
	defer items.Close()
	for items.Next() {
		var (
			estimateID string
			li         domain.EstimateLineItem
		)
		if err := items.Scan(&estimateID, &li.ID, &li.Category, &li.Description, &li.Quantity, &li.Unit, &li.UnitPrice, &li.TotalPrice); err != nil {
			r.skipRow("estimate line item", err)
			continue
		}
		if i, ok := index[estimateID]; ok {
			res[i].LineItems = append(res[i].LineItems, li)
		}
	}
	return res, items.Err()
}

func (r Repo) InsertEstimate(ctx context.Context, tx *sql.Tx, e domain.Estimate) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO estimates(id,project_id,name,total_amount,status,approved_date,created_at) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.ProjectID, e.Name, e.TotalAmount, e.Status, nullableDate(e.ApprovedDate), formatTime(e.CreatedAt)); err != nil {
		return err
	}
	for i, li := range e.LineItems {
		if _, err := tx.ExecContext(ctx, `INSERT INTO estimate_line_items(id,estimate_id,position,category,description,quantity,unit,unit_price,total_price) VALUES (?,?,?,?,?,?,?,?,?)`,
			li.ID, e.ID, i, li.Category, nullable(li.Description), li.Quantity, nullable(li.Unit), li.UnitPrice, li.TotalPrice); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) InsertCrewMember(ctx context.Context, tx *sql.Tx, m domain.CrewMember) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO crew_members(id,name,role,phone,email,employment_type,company,hourly_rate) VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.Name, m.Role, nullable(m.Phone), nullable(m.Email), m.EmploymentType, nullable(m.Company), nullableFloat(m.HourlyRate))
	return err
}

// ProjectCrewAssignments joins each assignment with its crew member.
func (r Repo) ProjectCrewAssignments(ctx context.Context, projectID string) ([]domain.CrewAssignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT a.id,a.project_id,COALESCE(a.role,''),a.is_active,a.start_date,
		m.id,m.name,m.role,COALESCE(m.phone,''),COALESCE(m.email,''),m.employment_type,COALESCE(m.company,''),m.hourly_rate
		FROM project_assignments a JOIN crew_members m ON m.id=a.crew_member_id
		WHERE a.project_id=? ORDER BY m.name, a.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CrewAssignment
	for rows.Next() {
		var (
			a      domain.CrewAssignment
			active int
			start  sql.NullString
			rate   sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Role, &active, &start,
			&a.Member.ID, &a.Member.Name, &a.Member.Role, &a.Member.Phone, &a.Member.Email,
			&a.Member.EmploymentType, &a.Member.Company, &rate); err != nil {
			r.skipRow("assignment", err)
			continue
		}
		a.Active = active != 0
		if a.StartDate, err = optionalDate(start); err != nil {
			r.skipRow("assignment", badField("assignment", a.ID, "start_date", err))
			continue
		}
		a.Member.HourlyRate = floatPtr(rate)
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) InsertCrewAssignment(ctx context.Context, tx *sql.Tx, a domain.CrewAssignment) error {
	active := 0
	if a.Active {
		active = 1
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO project_assignments(id,project_id,crew_member_id,role,is_active,start_date) VALUES (?,?,?,?,?,?)`,
		a.ID, a.ProjectID, a.Member.ID, nullable(a.Role), active, nullableDate(a.StartDate))
	return err
}
