package app

import (
	"log"
	"strings"
	"time"
)

// pipelineState carries what the loop remembers between frames.
type pipelineState struct {
	active     bool
	lastMotion time.Time
	analyzed   bool
	lastLabels string
}

// runPipeline is the main loop that processes frames from the camera.
//
// Without a motion detector every frame is analyzed at ActiveFPS. With one,
// the loop idles at IdleFPS and only re-runs detection when the scene
// changes, reusing the previous faces to annotate still frames. After
// IdleTimeout without motion it drops back to IdleFPS.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	state := &pipelineState{lastMotion: time.Now()}

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = ActiveFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			// A failed frame may still have switched modes.
			fps, err := a.step(state)
			if fps > 0 {
				a.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}
			if err != nil {
				log.Printf("app: %v", err)
			}
		}
	}
}

// step reads and processes one frame. It returns the new frame rate when
// the loop should switch between idle and active mode, or zero.
func (a *App) step(state *pipelineState) (int, error) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		return 0, err
	}
	defer frame.Close()

	fresh := true
	switchTo := 0

	if a.motion != nil {
		moved, changed := a.motion.Detect(frame)

		switch {
		case moved:
			state.lastMotion = time.Now()
			if !state.active {
				state.active = true
				switchTo = ActiveFPS
				log.Printf("app: motion %.1f%%, switched to active mode", changed)
			}
		case state.active && time.Since(state.lastMotion) > IdleTimeout:
			state.active = false
			switchTo = IdleFPS
			log.Println("app: switched to idle mode")
		}

		fresh = moved || !state.analyzed
	}

	var recs []Recognition
	if fresh {
		recs, err = a.Recognize(*frame)
		if err != nil {
			return switchTo, err
		}
		state.analyzed = true
		a.logChange(state, recs)
	} else {
		recs = a.LatestRecognitions()
	}

	Annotate(frame, recs)
	a.publish(frame, recs, fresh)
	return switchTo, nil
}

// logChange logs the recognized labels whenever they differ from the previous frame.
func (a *App) logChange(state *pipelineState, recs []Recognition) {
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Label
	}
	labels := strings.Join(names, ",")
	if labels == state.lastLabels {
		return
	}
	state.lastLabels = labels

	if labels == "" {
		log.Println("app: no faces in view")
		return
	}
	log.Printf("app: recognized %s", labels)
}
