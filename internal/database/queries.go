package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, the same seam the
// teacher's generated queries.Queries uses to run either against the pool
// directly or inside WithTx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the hand-written stand-in for the teacher's sqlc-generated
// package: no code generator runs in this environment, so every method
// below is what `sqlc generate` would otherwise have produced.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// --- users -----------------------------------------------------------

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := q.db.QueryRow(ctx, `SELECT id, username, password_hash, role FROM users WHERE username = $1`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (*User, error) {
	row := q.db.QueryRow(ctx, `SELECT id, username, password_hash, role FROM users WHERE id = $1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

// --- images ------------------------------------------------------------

func (q *Queries) GetImage(ctx context.Context, id int64) (*Image, error) {
	row := q.db.QueryRow(ctx, `SELECT id, name, path, sha256, size, reference_count FROM images WHERE id = $1`, id)
	var img Image
	if err := row.Scan(&img.ID, &img.Name, &img.Path, &img.SHA256, &img.Size, &img.ReferenceCount); err != nil {
		return nil, err
	}
	return &img, nil
}

func (q *Queries) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, path, sha256, size, reference_count FROM images ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.Name, &img.Path, &img.SHA256, &img.Size, &img.ReferenceCount); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// --- slices --------------------------------------------------------------

func (q *Queries) CreateSlice(ctx context.Context, ownerID int64, name string, template []byte) (int64, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO slices (owner_id, name, status, template) VALUES ($1, $2, $3, $4) RETURNING id`,
		ownerID, name, SliceStatusPending, template)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (q *Queries) GetSlice(ctx context.Context, id int64) (*Slice, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, owner_id, name, status, template, created_at FROM slices WHERE id = $1`, id)
	var s Slice
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Status, &s.Template, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) ListSlicesByOwner(ctx context.Context, ownerID int64) ([]Slice, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, owner_id, name, status, template, created_at FROM slices WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slice
	for rows.Next() {
		var s Slice
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Status, &s.Template, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) CountSliceNameLike(ctx context.Context, pattern string) (int64, error) {
	row := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM slices WHERE name LIKE $1`, pattern)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q *Queries) UpdateSliceName(ctx context.Context, id int64, name string) error {
	_, err := q.db.Exec(ctx, `UPDATE slices SET name = $1 WHERE id = $2`, name, id)
	return err
}

func (q *Queries) UpdateSliceTemplate(ctx context.Context, id int64, name string, template []byte) error {
	_, err := q.db.Exec(ctx, `UPDATE slices SET name = $1, template = $2, status = $3 WHERE id = $4`,
		name, template, SliceStatusPending, id)
	return err
}

func (q *Queries) UpdateSliceStatus(ctx context.Context, id int64, status string) error {
	_, err := q.db.Exec(ctx, `UPDATE slices SET status = $1 WHERE id = $2`, status, id)
	return err
}

func (q *Queries) DeleteSlice(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM slices WHERE id = $1`, id)
	return err
}

// --- vms -------------------------------------------------------------------

func (q *Queries) CreateVM(ctx context.Context, v VM) (int64, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO vms (slice_id, name, image_id, cpu, ram, disk, num_interfaces, state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		v.SliceID, v.Name, v.ImageID, v.CPU, v.RAM, v.Disk, v.NumInterfaces, VMStatePending)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (q *Queries) ListVMsBySlice(ctx context.Context, sliceID int64) ([]VM, error) {
	return q.queryVMs(ctx,
		`SELECT id, slice_id, name, image_id, cpu, ram, disk, num_interfaces, state, worker_id, pid, vnc_port
		 FROM vms WHERE slice_id = $1 ORDER BY id`, sliceID)
}

func (q *Queries) ListPendingVMsBySlice(ctx context.Context, sliceID int64) ([]VM, error) {
	return q.queryVMs(ctx,
		`SELECT id, slice_id, name, image_id, cpu, ram, disk, num_interfaces, state, worker_id, pid, vnc_port
		 FROM vms WHERE slice_id = $1 AND state = $2 ORDER BY id`, sliceID, VMStatePending)
}

func (q *Queries) queryVMs(ctx context.Context, sql string, args ...any) ([]VM, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VM
	for rows.Next() {
		var v VM
		if err := rows.Scan(&v.ID, &v.SliceID, &v.Name, &v.ImageID, &v.CPU, &v.RAM, &v.Disk,
			&v.NumInterfaces, &v.State, &v.WorkerID, &v.PID, &v.VNCPort); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *Queries) CountVMNameLike(ctx context.Context, pattern string) (int64, error) {
	row := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM vms WHERE name LIKE $1`, pattern)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q *Queries) UpdateVMName(ctx context.Context, id int64, name string) error {
	_, err := q.db.Exec(ctx, `UPDATE vms SET name = $1 WHERE id = $2`, name, id)
	return err
}

func (q *Queries) UpdateVMDeployResult(ctx context.Context, id int64, state string, workerID int, pid *int, vncPort int) error {
	_, err := q.db.Exec(ctx,
		`UPDATE vms SET state = $1, worker_id = $2, pid = $3, vnc_port = $4 WHERE id = $5`,
		state, workerID, pid, vncPort, id)
	return err
}

func (q *Queries) DeleteVMsBySlice(ctx context.Context, sliceID int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM vms WHERE slice_id = $1`, sliceID)
	return err
}

// --- links -----------------------------------------------------------------

func (q *Queries) CreateLink(ctx context.Context, sliceID, vmA, vmB int64, vlanID int) (int64, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO links (slice_id, vm_a, vm_b, vlan_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		sliceID, vmA, vmB, vlanID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (q *Queries) ListLinksBySlice(ctx context.Context, sliceID int64) ([]Link, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, slice_id, vm_a, vm_b, vlan_id FROM links WHERE slice_id = $1 ORDER BY id`, sliceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.SliceID, &l.VMA, &l.VMB, &l.VLANID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteLinksBySlice(ctx context.Context, sliceID int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM links WHERE slice_id = $1`, sliceID)
	return err
}

// --- audit log ---------------------------------------------------------

func (q *Queries) InsertSliceEvent(ctx context.Context, sliceID int64, level, module, message string) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO slice_events (slice_id, level, module, message) VALUES ($1, $2, $3, $4)`,
		sliceID, level, module, message)
	return err
}

func (q *Queries) ListSliceEvents(ctx context.Context, sliceID int64) ([]SliceEvent, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, slice_id, ts, level, module, message FROM slice_events WHERE slice_id = $1 ORDER BY id`, sliceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SliceEvent
	for rows.Next() {
		var e SliceEvent
		if err := rows.Scan(&e.ID, &e.SliceID, &e.Ts, &e.Level, &e.Module, &e.Message); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsNoRows reports whether err is the "no matching row" sentinel, the one
// pgx error callers are expected to distinguish from a real failure.
func IsNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
