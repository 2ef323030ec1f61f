// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// category_paths.go serves the read path of the category engine: the
// category_paths materialized view (built in the migrations) is a flattened
// snapshot of the active tree, refreshed after structural mutations and
// queried for paginated listings and ranked search.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/hierarchy"
	"github.com/MaddisonM79/market-planner/internal/models"
)

// arraySep separates array elements flattened by array_to_string. A unit
// separator cannot appear in names or uuids.
const arraySep = "\x1f"

// PathStore queries and refreshes the denormalized path cache.
type PathStore struct {
	db *sql.DB
}

// NewPathStore returns a new PathStore.
func NewPathStore(db *sql.DB) *PathStore {
	return &PathStore{db: db}
}

// Refresh rebuilds the path cache. The concurrent refresh builds the new
// snapshot beside the old one and swaps atomically, so readers never see a
// half-rebuilt tree. Safe to call repeatedly; concurrent calls serialize on
// the view lock.
func (s *PathStore) Refresh() error {
	if _, err := s.db.Exec(`REFRESH MATERIALIZED VIEW CONCURRENTLY category_paths`); err != nil {
		return fmt.Errorf("refresh category paths: %w", err)
	}
	return nil
}

// TreeQuery selects a page of the flattened tree.
type TreeQuery struct {
	TenantID uuid.UUID
	TypeName string
	// ParentID optionally scopes the listing to one subtree (the scope
	// node itself is not returned).
	ParentID *uuid.UUID
	// MaxDepth bounds how many levels below the scope (or below the
	// roots) are returned. Zero means the full cached depth.
	MaxDepth int
	Limit    int
	Offset   int
}

// PagedNodes is one page of tree nodes plus the unpaged total.
type PagedNodes struct {
	Nodes  []models.TreeNode `json:"nodes"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

const treeNodeColumns = `
	v.id, v.name, v.parent_id, v.tenant_id, v.path, v.display_path,
	array_to_string(v.ancestor_ids, $SEP$), array_to_string(v.ancestor_names, $SEP$),
	v.depth, v.sort_order, v.usage_count,
	(SELECT COUNT(*) FROM categories c WHERE c.parent_id = v.id AND c.is_active)`

// Tree returns one page of the flattened tree for a tenant and category
// type, ordered by usage then name. Each node carries its live child count
// and a flag marking children cut off by the depth bound.
func (s *PathStore) Tree(q TreeQuery) (*PagedNodes, error) {
	typeID, err := s.resolveType(q.TypeName)
	if err != nil {
		return nil, err
	}

	// The view materializes depths 0 through hierarchy.MaxDepth, so the
	// full cached tree is MaxDepth+1 levels.
	if q.MaxDepth <= 0 || q.MaxDepth > hierarchy.MaxDepth+1 {
		q.MaxDepth = hierarchy.MaxDepth + 1
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	// Depth bounds are relative to the scope: top of the listing is the
	// roots, or the children of the scope node.
	baseDepth := 0
	var scopeID uuid.UUID
	scoped := q.ParentID != nil
	if scoped {
		scopeID = *q.ParentID
		var parentDepth int
		err := s.db.QueryRow(`
			SELECT depth FROM category_paths
			WHERE id = $1 AND category_type_id = $2
			  AND (tenant_id IS NULL OR tenant_id = $3)
		`, scopeID, typeID, q.TenantID).Scan(&parentDepth)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: parent %s", ErrNotFound, scopeID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve tree scope: %w", err)
		}
		baseDepth = parentDepth + 1
	}
	capDepth := baseDepth + q.MaxDepth - 1
	if capDepth > hierarchy.MaxDepth {
		// Nothing deeper is cached. Nodes sitting on the view's floor
		// count as capped so has_more can flag children that fell off it.
		capDepth = hierarchy.MaxDepth
	}

	filter := `
		FROM category_paths v
		WHERE v.category_type_id = $1
		  AND (v.tenant_id IS NULL OR v.tenant_id = $2)
		  AND v.depth BETWEEN $3 AND $4
		  AND ($5::uuid IS NULL OR ($5 = ANY(v.ancestor_ids) AND v.id <> $5))`

	var scopeArg any
	if scoped {
		scopeArg = scopeID
	}

	var total int
	err = s.db.QueryRow(`SELECT COUNT(*) `+filter, typeID, q.TenantID, baseDepth, capDepth, scopeArg).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count tree nodes: %w", err)
	}

	cols := strings.ReplaceAll(treeNodeColumns, "$SEP$", "chr(31)")
	rows, err := s.db.Query(`
		SELECT `+cols+`,
		       v.depth = $4 AS at_cap
		`+filter+`
		ORDER BY v.usage_count DESC, v.name
		LIMIT $6 OFFSET $7
	`, typeID, q.TenantID, baseDepth, capDepth, scopeArg, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tree nodes: %w", err)
	}
	defer rows.Close()

	page := &PagedNodes{Total: total, Limit: q.Limit, Offset: q.Offset}
	for rows.Next() {
		var n models.TreeNode
		var atCap bool
		if err := scanTreeNode(rows, &n, &atCap); err != nil {
			return nil, err
		}
		n.HasMore = atCap && n.ChildCount > 0
		page.Nodes = append(page.Nodes, n)
	}
	return page, rows.Err()
}

// SearchQuery selects ranked categories by name or display path.
type SearchQuery struct {
	TenantID uuid.UUID
	TypeName string
	Term     string
	Limit    int
}

// Search matches categories by name or full display path. A name prefix
// match ranks highest, then a name substring, then a path substring; heavily
// used categories get a capped boost so popular nodes surface first among
// equal matches.
func (s *PathStore) Search(q SearchQuery) ([]models.TreeNode, error) {
	typeID, err := s.resolveType(q.TypeName)
	if err != nil {
		return nil, err
	}
	term := strings.TrimSpace(q.Term)
	if term == "" {
		return nil, nil
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 25
	}

	pattern := escapeLike(strings.ToLower(term))

	cols := strings.ReplaceAll(treeNodeColumns, "$SEP$", "chr(31)")
	rows, err := s.db.Query(`
		SELECT `+cols+`,
		       (CASE
		            WHEN lower(v.name) LIKE $3 || '%' THEN 100
		            WHEN lower(v.name) LIKE '%' || $3 || '%' THEN 60
		            ELSE 30
		        END + LEAST(v.usage_count, 50)) AS relevance
		FROM category_paths v
		WHERE v.category_type_id = $1
		  AND (v.tenant_id IS NULL OR v.tenant_id = $2)
		  AND (lower(v.name) LIKE '%' || $3 || '%'
		       OR lower(v.display_path) LIKE '%' || $3 || '%')
		ORDER BY relevance DESC, v.usage_count DESC, v.name
		LIMIT $4
	`, typeID, q.TenantID, pattern, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	defer rows.Close()

	var results []models.TreeNode
	for rows.Next() {
		var n models.TreeNode
		var relevance int
		if err := scanTreeNode(rows, &n, &relevance); err != nil {
			return nil, err
		}
		n.Relevance = relevance
		results = append(results, n)
	}
	return results, rows.Err()
}

// Staleness compares the cached snapshot against the live tree. A non-zero
// drift means a refresh is due.
func (s *PathStore) Staleness() (cached, live int, err error) {
	err = s.db.QueryRow(`SELECT COUNT(*) FROM category_paths`).Scan(&cached)
	if err != nil {
		return 0, 0, fmt.Errorf("count cached paths: %w", err)
	}
	err = s.db.QueryRow(`
		WITH RECURSIVE tree AS (
			SELECT id, 0 AS depth FROM categories WHERE parent_id IS NULL AND is_active
			UNION ALL
			SELECT c.id, t.depth + 1 FROM categories c
			JOIN tree t ON c.parent_id = t.id
			WHERE c.is_active AND t.depth < 10
		)
		SELECT COUNT(*) FROM tree
	`).Scan(&live)
	if err != nil {
		return 0, 0, fmt.Errorf("count live tree: %w", err)
	}
	return cached, live, nil
}

func (s *PathStore) resolveType(name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(`SELECT id FROM category_types WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("%w: category type %q", ErrNotFound, name)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve category type: %w", err)
	}
	return id, nil
}

// scanTreeNode scans the treeNodeColumns plus one trailing extra column.
func scanTreeNode(rows *sql.Rows, n *models.TreeNode, extra any) error {
	var idList, nameList string
	err := rows.Scan(
		&n.ID, &n.Name, &n.ParentID, &n.TenantID, &n.Path, &n.DisplayPath,
		&idList, &nameList, &n.Depth, &n.SortOrder, &n.UsageCount, &n.ChildCount,
		extra,
	)
	if err != nil {
		return fmt.Errorf("scan tree node: %w", err)
	}
	for _, raw := range strings.Split(idList, arraySep) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse ancestor id %q: %w", raw, err)
		}
		n.AncestorIDs = append(n.AncestorIDs, id)
	}
	n.AncestorNames = strings.Split(nameList, arraySep)
	return nil
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Refresher coalesces refresh requests so a burst of mutations triggers one
// rebuild. Trigger never blocks; Run owns the rebuild loop.
type Refresher struct {
	paths   *PathStore
	trigger chan struct{}
}

// NewRefresher returns a Refresher for the given PathStore.
func NewRefresher(paths *PathStore) *Refresher {
	return &Refresher{paths: paths, trigger: make(chan struct{}, 1)}
}

// Trigger requests a refresh. Requests arriving while one is pending fold
// into it.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run processes refresh requests until the context is cancelled. Meant to be
// started as a goroutine at boot, so mutation requests never wait on the
// rebuild.
func (r *Refresher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
			if err := r.paths.Refresh(); err != nil {
				slog.Error("category path refresh failed", "error", err)
				continue
			}
			slog.Debug("category paths refreshed")
		}
	}
}
