package flow

import (
	"context"
	"fmt"
	"time"

	"ivr-engine/internal/menu"
)

// MenuTree is the fully rendered view of a menu and every submenu reachable
// from it. It exists for configuration verification (the ops introspection
// endpoint), not for the call-flow protocol.
type MenuTree struct {
	Rendered PresentMenuDirective `json:"rendered"`
	// Children maps a submenu option's digit to its rendered subtree.
	Children map[int]*MenuTree `json:"children,omitempty"`
}

// RenderTree walks the menu graph depth-first. The same visited-set guard
// as live dispatch applies: a cycle yields ErrMenuCycle instead of
// recursing forever.
func RenderTree(ctx context.Context, menus MenuLoader, menuID string, now time.Time) (*MenuTree, error) {
	visited := map[string]struct{}{menuID: {}}
	return renderTree(ctx, menus, menuID, now, visited)
}

func renderTree(ctx context.Context, menus MenuLoader, menuID string, now time.Time, visited map[string]struct{}) (*MenuTree, error) {
	m, err := menus.GetByID(ctx, menuID)
	if err != nil {
		return nil, fmt.Errorf("load menu %s: %w", menuID, err)
	}
	opts, err := menus.ListOptions(ctx, menuID)
	if err != nil {
		return nil, fmt.Errorf("load menu %s options: %w", menuID, err)
	}

	tree := &MenuTree{Rendered: Render(m, opts, now)}
	for _, o := range opts {
		if o.Action != menu.ActionSubmenu || !o.Available(now) {
			continue
		}
		if _, seen := visited[o.TargetMenuID]; seen {
			return nil, fmt.Errorf("%w: %s -> %s", ErrMenuCycle, menuID, o.TargetMenuID)
		}
		visited[o.TargetMenuID] = struct{}{}
		child, err := renderTree(ctx, menus, o.TargetMenuID, now, visited)
		if err != nil {
			return nil, err
		}
		// Path-scoped: two options sharing a submenu is legal, a loop is not.
		delete(visited, o.TargetMenuID)
		if tree.Children == nil {
			tree.Children = make(map[int]*MenuTree)
		}
		tree.Children[o.Digit] = child
	}
	return tree, nil
}
