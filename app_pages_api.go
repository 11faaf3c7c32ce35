package main

import (
	"log/slog"

	"quickcmd/internal/pages"
)

// mutatePages runs fn against the collection on the UI loop. A successful
// mutation has already queued a save through the change hook; this emits
// pages:updated. Any press or drag in progress is dropped because its
// button indices no longer name the same buttons.
func (a *App) mutatePages(name string, fn func(*pages.Collection) error) error {
	var opErr error
	if err := a.onLoop(name, func() {
		if opErr = fn(a.pages); opErr != nil {
			return
		}
		a.emitPagesUpdated()
		if a.engine.Cancel() {
			slog.Debug("[DEBUG-REORDER] gesture dropped after page change", "op", name)
			a.emitDragState()
		}
	}); err != nil {
		return err
	}
	if opErr != nil {
		slog.Debug("[DEBUG-PAGES] mutation rejected", "op", name, "error", opErr)
	}
	return opErr
}

// GetPages returns every page with its buttons.
func (a *App) GetPages() ([]pages.Page, error) {
	var out []pages.Page
	err := a.onLoop("get-pages", func() { out = a.pages.Pages() })
	return out, err
}

// AddPage appends an empty page.
func (a *App) AddPage(name string) error {
	return a.mutatePages("add-page", func(c *pages.Collection) error { return c.AddPage(name) })
}

// DeletePage removes a page and its buttons.
func (a *App) DeletePage(pageIndex int) error {
	return a.mutatePages("delete-page", func(c *pages.Collection) error { return c.DeletePage(pageIndex) })
}

// RenamePage renames a page.
func (a *App) RenamePage(pageIndex int, name string) error {
	return a.mutatePages("rename-page", func(c *pages.Collection) error { return c.RenamePage(pageIndex, name) })
}

// AddButton appends a button to a page.
func (a *App) AddButton(pageIndex int, name, command string) error {
	return a.mutatePages("add-button", func(c *pages.Collection) error { return c.AddButton(pageIndex, name, command) })
}

// EditButton replaces a button's name and command in place.
func (a *App) EditButton(pageIndex, buttonIndex int, name, command string) error {
	return a.mutatePages("edit-button", func(c *pages.Collection) error {
		return c.EditButton(pageIndex, buttonIndex, name, command)
	})
}

// DeleteButton removes a button.
func (a *App) DeleteButton(pageIndex, buttonIndex int) error {
	return a.mutatePages("delete-button", func(c *pages.Collection) error { return c.DeleteButton(pageIndex, buttonIndex) })
}
