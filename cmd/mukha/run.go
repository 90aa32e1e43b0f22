package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/app"
	"github.com/ayusman/mukha/internal/gallery"
	"github.com/ayusman/mukha/internal/server"
	"github.com/ayusman/mukha/internal/tray"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start live recognition with the web view",
		Long: `Open the camera, recognize faces continuously and serve the annotated
stream, the known faces API and live recognition events over HTTP.`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	cmd.Flags().Int("camera", 0, "Camera device index (overrides config)")
	cmd.Flags().String("addr", "", "Address to listen on (overrides config)")
	cmd.Flags().Float64("motion", 0, "Changed-pixel percentage that triggers re-recognition, 0 for every frame")
	cmd.Flags().Bool("tray", false, "Show the system tray menu")
	cmd.Flags().String("web", "", "Directory of static web files")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	g, err := gallery.Open(cfg.FacesDir)
	if err != nil {
		return err
	}
	defer g.Close()

	a, err := newApp(cfg, g)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start camera %d: %w", cfg.Camera.Device, err)
	}

	webDir := mustGetString(cmd, "web")
	if webDir == "" {
		webDir = cfg.Server.StaticDir
	}
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Printf("mukha: serving static files from %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, cfg.Server.Addr)
	}()

	url := "http://" + cfg.Server.Addr
	log.Printf("mukha: %d known faces, live view at %s", g.Len(), url)

	if cfg.Tray || mustGetBool(cmd, "tray") {
		runTray(ctx, stop, a, url)
	}

	return <-errCh
}

// runTray shows the tray menu until the user quits or ctx ends. It must run
// on the main goroutine.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, url string) {
	t := tray.New()
	t.SetKnownFaces(a.Gallery().Len())
	t.SetEnabled(a.IsEnabled())

	// The web view can toggle recognition too; follow the app's state.
	t.OnToggle(a.SetEnabled)
	a.OnEnabledChange(t.SetEnabled)
	t.OnSaveFace(func() {
		openURL(url + "/#enroll")
	})
	t.OnReload(func() {
		if err := a.ReloadGallery(); err != nil {
			log.Printf("mukha: reload failed: %v", err)
		}
		t.SetKnownFaces(a.Gallery().Len())
	})
	t.OnOpen(func() {
		openURL(url)
	})
	t.OnQuit(stop)

	a.OnRecognition(func(recs []app.Recognition) {
		t.SetKnownFaces(a.Gallery().Len())
		for _, r := range recs {
			if r.Known() {
				t.SetLastSeen(r.Label)
				return
			}
		}
	})

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	stop()
}

func openURL(url string) {
	if err := browser.OpenURL(url); err != nil {
		log.Printf("mukha: cannot open browser: %v", err)
	}
}
