package main

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"quickcmd/internal/ipc"
	"quickcmd/internal/notices"
	"quickcmd/internal/singleinstance"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	app := NewApp()
	installLogger(app, os.Stderr)

	// Single-instance check before any Wails/WebView2 initialization.
	lock, err := singleinstance.Claim(singleinstance.DefaultMutexName(), signalRunningInstance)
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, exiting")
		return
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] mutex creation failed, proceeding without single-instance guard", "error", err)
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("[DEBUG-SINGLE] mutex release failed", "error", releaseErr)
		}
	}()

	err = wails.Run(&options.App{
		Title:             "QuickCmd",
		Width:             460,
		Height:            320,
		MinWidth:          220,
		MinHeight:         140,
		HideWindowOnClose: true,
		AlwaysOnTop:       true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 24, G: 26, B: 32, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})
	if err != nil {
		slog.Error("[DEBUG-SINGLE] wails run failed", "error", err)
	}
}

// installLogger routes Warn+ records to the app as notices.
func installLogger(app *App, w io.Writer) {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(notices.NewHandler(base, slog.LevelWarn, app.notices, app.publishNotice)))
}

func signalRunningInstance() error {
	if _, err := ipc.Send("", ipc.Request{Action: ipc.ActionShowWindow}); err != nil {
		return fmt.Errorf("signal running instance: %w", err)
	}
	return nil
}
