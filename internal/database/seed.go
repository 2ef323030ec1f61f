package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/hierarchy"
)

// seedType describes one category type and its system-default tree.
type seedType struct {
	name           string
	isHierarchical bool
	allowsCustom   bool
	tree           []seedNode
}

// seedNode is one system-default category with optional children.
type seedNode struct {
	name     string
	children []seedNode
}

// defaultTypes is the seed data: the classification namespaces the market
// planner ships with, all tenant-less (visible to every tenant).
var defaultTypes = []seedType{
	{
		name:           "material_categories",
		isHierarchical: true,
		allowsCustom:   true,
		tree: []seedNode{
			{name: "Yarn", children: []seedNode{
				{name: "Wool", children: []seedNode{{name: "Merino"}, {name: "Alpaca Blend"}}},
				{name: "Cotton"},
				{name: "Acrylic"},
			}},
			{name: "Hooks and Needles"},
			{name: "Notions"},
			{name: "Packaging"},
		},
	},
	{
		name:           "product_categories",
		isHierarchical: true,
		allowsCustom:   true,
		tree: []seedNode{
			{name: "Wearables", children: []seedNode{
				{name: "Hats"}, {name: "Scarves"}, {name: "Mittens"},
			}},
			{name: "Home Decor", children: []seedNode{
				{name: "Blankets"}, {name: "Coasters"},
			}},
			{name: "Toys"},
		},
	},
	{
		name:           "yarn_weights",
		isHierarchical: false,
		allowsCustom:   false,
		tree: []seedNode{
			{name: "Lace"}, {name: "Fingering"}, {name: "Sport"},
			{name: "DK"}, {name: "Worsted"}, {name: "Bulky"}, {name: "Super Bulky"},
		},
	},
	{
		name:           "fiber_types",
		isHierarchical: true,
		allowsCustom:   false,
		tree: []seedNode{
			{name: "Animal", children: []seedNode{{name: "Wool"}, {name: "Silk"}, {name: "Mohair"}}},
			{name: "Plant", children: []seedNode{{name: "Cotton"}, {name: "Linen"}, {name: "Bamboo"}}},
			{name: "Synthetic", children: []seedNode{{name: "Acrylic"}, {name: "Nylon"}}},
		},
	},
	{
		name:           "difficulty_levels",
		isHierarchical: false,
		allowsCustom:   false,
		tree: []seedNode{
			{name: "Beginner"}, {name: "Intermediate"}, {name: "Advanced"},
		},
	},
}

// Seed populates the database with the system-default category types and
// trees. It is a no-op when category types already exist, so it is safe to
// run on every startup in development.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM category_types").Scan(&count); err != nil {
		return fmt.Errorf("seed check category types: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, st := range defaultTypes {
		var typeID uuid.UUID
		err := tx.QueryRow(`
			INSERT INTO category_types (name, is_hierarchical, allows_custom)
			VALUES ($1, $2, $3)
			RETURNING id
		`, st.name, st.isHierarchical, st.allowsCustom).Scan(&typeID)
		if err != nil {
			return fmt.Errorf("seed category type %q: %w", st.name, err)
		}

		for i, node := range st.tree {
			if err := seedCategory(tx, typeID, nil, "", -1, node, i); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with system default categories", "types", len(defaultTypes))
	return nil
}

// seedCategory inserts one default category and recurses into its children.
// Paths and levels are computed the same way the engine computes them at
// runtime, so seeded trees satisfy the path/level invariants from day one.
func seedCategory(tx *sql.Tx, typeID uuid.UUID, parentID *uuid.UUID, parentPath string, parentLevel int, node seedNode, sortOrder int) error {
	if err := hierarchy.ValidateName(node.name); err != nil {
		return fmt.Errorf("seed category %q: %w", node.name, err)
	}
	path, level := hierarchy.ComputePath(node.name, parentPath, parentLevel)

	var id uuid.UUID
	err := tx.QueryRow(`
		INSERT INTO categories (category_type_id, tenant_id, name, parent_id, level, path, sort_order)
		VALUES ($1, NULL, $2, $3, $4, $5, $6)
		RETURNING id
	`, typeID, node.name, parentID, level, path, sortOrder).Scan(&id)
	if err != nil {
		return fmt.Errorf("seed category %q: %w", node.name, err)
	}

	for i, child := range node.children {
		if err := seedCategory(tx, typeID, &id, path, level, child, i); err != nil {
			return err
		}
	}
	return nil
}
