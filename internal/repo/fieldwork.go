package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"sitefeed/internal/domain"
)

func (r Repo) ListDailyLogs(ctx context.Context) ([]domain.DailyLog, error) {
	return r.queryDailyLogs(ctx, "", nil)
}

// ProjectDailyLogs returns the project's logs newest first with crew,
// materials, and equipment attached.
func (r Repo) ProjectDailyLogs(ctx context.Context, projectID string) ([]domain.DailyLog, error) {
	return r.queryDailyLogs(ctx, "WHERE l.project_id=?", []any{projectID})
}

func (r Repo) queryDailyLogs(ctx context.Context, where string, args []any) ([]domain.DailyLog, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT l.id,l.project_id,l.log_date,COALESCE(l.work_summary,''),COALESCE(l.weather,''),l.temperature_high,l.temperature_low,l.total_hours,COALESCE(l.notes,''),COALESCE(l.status,''),l.areas_worked_json
		FROM daily_logs l `+where+` ORDER BY l.log_date DESC, l.id`, args...)
	if err != nil {
		return nil, err
	}
	var logs []domain.DailyLog
	index := map[string]int{}
	for rows.Next() {
		var (
			l         domain.DailyLog
			date      string
			high, low sql.NullFloat64
			areas     sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.ProjectID, &date, &l.WorkSummary, &l.Weather, &high, &low,
			&l.TotalHours, &l.Notes, &l.Status, &areas); err != nil {
			r.skipRow("daily log", err)
			continue
		}
		if l.LogDate, err = parseDate(date); err != nil {
			r.skipRow("daily log", badField("daily log", l.ID, "log_date", err))
			continue
		}
		l.TemperatureHigh = floatPtr(high)
		l.TemperatureLow = floatPtr(low)
		if areas.Valid && areas.String != "" {
			if err := json.Unmarshal([]byte(areas.String), &l.AreasWorked); err != nil {
				r.skipRow("daily log", badField("daily log", l.ID, "areas_worked_json", err))
				continue
			}
		}
		index[l.ID] = len(logs)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(logs) == 0 {
		return logs, nil
	}
	if err := r.attachLogDetails(ctx, logs, index, where, args); err != nil {
		return nil, err
	}
	return logs, nil
}

// attachLogDetails loads the child rows of every log matched by where.
func (r Repo) attachLogDetails(ctx context.Context, logs []domain.DailyLog, index map[string]int, where string, args []any) error {
	join := ` JOIN daily_logs l ON l.id=c.log_id ` + where + ` ORDER BY c.log_id, c.position`

	crew, err := r.DB.QueryContext(ctx, `SELECT c.log_id,c.worker_name,c.hours_worked,COALESCE(c.role,'') FROM daily_log_crew c`+join, args...)
	if err != nil {
		return err
	}
	for crew.Next() {
		var (
			logID string
			ch    domain.CrewHours
		)
		if err := crew.Scan(&logID, &ch.WorkerName, &ch.Hours, &ch.Role); err != nil {
			r.skipRow("daily log crew", err)
			continue
		}
		if i, ok := index[logID]; ok {
			logs[i].Crew = append(logs[i].Crew, ch)
		}
	}
	crew.Close()
	if err := crew.Err(); err != nil {
		return err
	}

	mats, err := r.DB.QueryContext(ctx, `SELECT c.log_id,c.item_name,c.quantity,COALESCE(c.unit,'') FROM daily_log_materials c`+join, args...)
	if err != nil {
		return err
	}
	for mats.Next() {
		var (
			logID string
			m     domain.MaterialUse
		)
		if err := mats.Scan(&logID, &m.ItemName, &m.Quantity, &m.Unit); err != nil {
			r.skipRow("daily log material", err)
			continue
		}
		if i, ok := index[logID]; ok {
			logs[i].Materials = append(logs[i].Materials, m)
		}
	}
	mats.Close()
	if err := mats.Err(); err != nil {
		return err
	}

	equip, err := r.DB.QueryContext(ctx, `SELECT c.log_id,c.equipment_name,c.hours_used FROM daily_log_equipment c`+join, args...)
	if err != nil {
		return err
	}
	defer equip.Close()
	for equip.Next() {
		var (
			logID string
			e     domain.EquipmentUse
			hours sql.NullFloat64
		)
		if err := equip.Scan(&logID, &e.Name, &hours); err != nil {
			r.skipRow("daily log equipment", err)
			continue
		}
		e.Hours = floatPtr(hours)
		if i, ok := index[logID]; ok {
			logs[i].Equipment = append(logs[i].Equipment, e)
		}
	}
	return equip.Err()
}

func (r Repo) InsertDailyLog(ctx context.Context, tx *sql.Tx, l domain.DailyLog) error {
	var areas any
	if len(l.AreasWorked) > 0 {
		data, err := json.Marshal(l.AreasWorked)
		if err != nil {
			return err
		}
		areas = string(data)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO daily_logs(id,project_id,log_date,work_summary,weather,temperature_high,temperature_low,total_hours,notes,status,areas_worked_json) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.ProjectID, formatDate(l.LogDate), nullable(l.WorkSummary), nullable(l.Weather),
		nullableFloat(l.TemperatureHigh), nullableFloat(l.TemperatureLow), l.TotalHours,
		nullable(l.Notes), nullable(l.Status), areas); err != nil {
		return err
	}
	for i, c := range l.Crew {
		if _, err := tx.ExecContext(ctx, `INSERT INTO daily_log_crew(log_id,position,worker_name,hours_worked,role) VALUES (?,?,?,?,?)`,
			l.ID, i, c.WorkerName, c.Hours, nullable(c.Role)); err != nil {
			return err
		}
	}
	for i, m := range l.Materials {
		if _, err := tx.ExecContext(ctx, `INSERT INTO daily_log_materials(log_id,position,item_name,quantity,unit) VALUES (?,?,?,?,?)`,
			l.ID, i, m.ItemName, m.Quantity, nullable(m.Unit)); err != nil {
			return err
		}
	}
	for i, e := range l.Equipment {
		if _, err := tx.ExecContext(ctx, `INSERT INTO daily_log_equipment(log_id,position,equipment_name,hours_used) VALUES (?,?,?,?)`,
			l.ID, i, e.Name, nullableFloat(e.Hours)); err != nil {
			return err
		}
	}
	return nil
}

const photoColumns = `id,project_id,filename,category,COALESCE(storage_url,''),COALESCE(thumbnail_url,''),COALESCE(notes,''),COALESCE(area,''),created_at`

func (r Repo) queryPhotos(ctx context.Context, where string, args ...any) ([]domain.Photo, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+photoColumns+` FROM project_photos `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Photo
	for rows.Next() {
		var (
			p       domain.Photo
			created string
		)
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Filename, &p.Category, &p.StorageURL, &p.ThumbnailURL, &p.Notes, &p.Area, &created); err != nil {
			r.skipRow("photo", err)
			continue
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			r.skipRow("photo", badField("photo", p.ID, "created_at", err))
			continue
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) ListPhotos(ctx context.Context) ([]domain.Photo, error) {
	return r.queryPhotos(ctx, "")
}

func (r Repo) ProjectPhotos(ctx context.Context, projectID string) ([]domain.Photo, error) {
	return r.queryPhotos(ctx, "WHERE project_id=?", projectID)
}

func (r Repo) InsertPhoto(ctx context.Context, tx *sql.Tx, p domain.Photo) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO project_photos(id,project_id,filename,category,storage_url,thumbnail_url,notes,area,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ProjectID, p.Filename, p.Category, nullable(p.StorageURL), nullable(p.ThumbnailURL),
		nullable(p.Notes), nullable(p.Area), formatTime(p.CreatedAt))
	return err
}

func (r Repo) ListSafetyChecklists(ctx context.Context) ([]domain.SafetyChecklist, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,checklist_date,status,created_at FROM safety_checklists ORDER BY checklist_date DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SafetyChecklist
	for rows.Next() {
		var (
			c             domain.SafetyChecklist
			date, created string
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &date, &c.Status, &created); err != nil {
			r.skipRow("safety checklist", err)
			continue
		}
		if c.ChecklistDate, err = parseDate(date); err != nil {
			r.skipRow("safety checklist", badField("safety checklist", c.ID, "checklist_date", err))
			continue
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			r.skipRow("safety checklist", badField("safety checklist", c.ID, "created_at", err))
			continue
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertSafetyChecklist(ctx context.Context, tx *sql.Tx, c domain.SafetyChecklist) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO safety_checklists(id,project_id,checklist_date,status,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.ProjectID, formatDate(c.ChecklistDate), c.Status, formatTime(c.CreatedAt))
	return err
}
