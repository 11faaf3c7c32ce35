package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quickcmd/internal/dispatch"
	"quickcmd/internal/history"
	"quickcmd/internal/pages"
)

const (
	dispatchTimeout      = 5 * time.Second
	defaultRecentHistory = 50
)

// ExecuteButton sends a button's command to the previously focused
// application. The index is re-validated against the current pages first.
func (a *App) ExecuteButton(pageIndex, buttonIndex int) error {
	var (
		page   pages.Page
		button pages.Button
		opErr  error
	)
	if err := a.onLoop("resolve-button", func() {
		if page, opErr = a.pages.Page(pageIndex); opErr != nil {
			return
		}
		button, opErr = a.pages.Button(pageIndex, buttonIndex)
	}); err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	err := a.dispatcher.Dispatch(ctx, button.Command)
	a.recordDispatch(page.Name, button, err)
	if err != nil {
		var dispatchErr *dispatch.DispatchError
		step := ""
		if errors.As(err, &dispatchErr) {
			step = string(dispatchErr.Step)
		}
		slog.Warn("[WARN-DISPATCH] command dispatch failed", "button", button.Name, "step", step, "error", err)
		return err
	}
	slog.Debug("[DEBUG-DISPATCH] command dispatched", "page", page.Name, "button", button.Name)
	return nil
}

func (a *App) recordDispatch(pageName string, button pages.Button, dispatchErr error) {
	if a.history == nil {
		return
	}
	entry := history.Entry{
		Page:    pageName,
		Button:  button.Name,
		Command: button.Command,
		OK:      dispatchErr == nil,
	}
	if dispatchErr != nil {
		entry.Error = dispatchErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.history.Record(ctx, entry); err != nil {
		slog.Warn("[WARN-HISTORY] failed to record dispatch", "error", err)
	}
}

// RecentDispatches returns the newest dispatch history entries. A limit of
// zero or less returns the default amount.
func (a *App) RecentDispatches(limit int) ([]history.Entry, error) {
	if a.history == nil {
		return []history.Entry{}, nil
	}
	if limit <= 0 {
		limit = defaultRecentHistory
	}
	return a.history.Recent(context.Background(), limit)
}
