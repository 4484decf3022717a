// Package seed imports a YAML dataset of construction records into a
// workspace database.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"sitefeed/internal/repo"
)

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sitefeed"))

// Summary counts imported records per kind.
type Summary struct {
	Projects         int
	Invoices         int
	Bills            int
	Costs            int
	DailyLogs        int
	Photos           int
	Bids             int
	SafetyChecklists int
	Crew             int
	Assignments      int
	Estimates        int
}

func (s Summary) Total() int {
	return s.Projects + s.Invoices + s.Bills + s.Costs + s.DailyLogs + s.Photos +
		s.Bids + s.SafetyChecklists + s.Crew + s.Assignments + s.Estimates
}

// Parse decodes a dataset, rejecting unknown keys.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil && !errors.Is(err, io.EOF) {
		return ds, fmt.Errorf("invalid dataset yaml: %w", err)
	}
	return ds, nil
}

func FromFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, err
	}
	return Parse(data)
}

// Import converts the dataset and writes it in a single transaction. Nothing
// is written when any record fails to convert or insert.
func Import(ctx context.Context, r repo.Repo, ds Dataset, now time.Time) (Summary, error) {
	recs, err := convert(ds, now)
	if err != nil {
		return Summary{}, err
	}
	err = r.InTx(ctx, func(tx *sql.Tx) error {
		for _, p := range recs.projects {
			if err := r.InsertProject(ctx, tx, p); err != nil {
				return fmt.Errorf("insert project %s: %w", p.Code, err)
			}
		}
		for _, inv := range recs.invoices {
			if err := r.InsertInvoice(ctx, tx, inv); err != nil {
				return fmt.Errorf("insert invoice %s: %w", inv.InvoiceNumber, err)
			}
		}
		for _, b := range recs.bills {
			if err := r.InsertBill(ctx, tx, b); err != nil {
				return fmt.Errorf("insert bill %s: %w", b.ID, err)
			}
		}
		for _, c := range recs.costs {
			if err := r.InsertProjectCost(ctx, tx, c); err != nil {
				return fmt.Errorf("insert cost %s: %w", c.ID, err)
			}
		}
		for _, l := range recs.logs {
			if err := r.InsertDailyLog(ctx, tx, l); err != nil {
				return fmt.Errorf("insert daily log %s: %w", l.ID, err)
			}
		}
		for _, p := range recs.photos {
			if err := r.InsertPhoto(ctx, tx, p); err != nil {
				return fmt.Errorf("insert photo %s: %w", p.Filename, err)
			}
		}
		for _, b := range recs.bids {
			if err := r.InsertBid(ctx, tx, b); err != nil {
				return fmt.Errorf("insert bid %s: %w", b.Name, err)
			}
		}
		for _, c := range recs.safety {
			if err := r.InsertSafetyChecklist(ctx, tx, c); err != nil {
				return fmt.Errorf("insert safety checklist %s: %w", c.ID, err)
			}
		}
		for _, m := range recs.crew {
			if err := r.InsertCrewMember(ctx, tx, m); err != nil {
				return fmt.Errorf("insert crew member %s: %w", m.Name, err)
			}
		}
		for _, a := range recs.assignments {
			if err := r.InsertCrewAssignment(ctx, tx, a); err != nil {
				return fmt.Errorf("insert assignment %s: %w", a.ID, err)
			}
		}
		for _, e := range recs.estimates {
			if err := r.InsertEstimate(ctx, tx, e); err != nil {
				return fmt.Errorf("insert estimate %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Projects:         len(recs.projects),
		Invoices:         len(recs.invoices),
		Bills:            len(recs.bills),
		Costs:            len(recs.costs),
		DailyLogs:        len(recs.logs),
		Photos:           len(recs.photos),
		Bids:             len(recs.bids),
		SafetyChecklists: len(recs.safety),
		Crew:             len(recs.crew),
		Assignments:      len(recs.assignments),
		Estimates:        len(recs.estimates),
	}, nil
}

// StableID derives a deterministic id so re-running an import over a fresh
// workspace yields the same ids.
func StableID(kind, key string) string {
	return uuid.NewSHA1(namespace, []byte(kind+"/"+key)).String()
}
