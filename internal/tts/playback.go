package tts

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/pkg/audioconv"
)

var speakerInit sync.Once

// playPCM plays 16 kHz mono float32 PCM through the default output device,
// blocking until the last sample is out.
func playPCM(pcm []float32) error {
	if len(pcm) == 0 {
		return nil
	}

	var initErr error
	speakerInit.Do(func() {
		sr := beep.SampleRate(audioconv.TargetRate)
		initErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if initErr != nil {
		return initErr
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(&pcmStreamer{pcm: pcm}, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}

// pcmStreamer streams mono PCM to both output channels.
type pcmStreamer struct {
	pcm []float32
	pos int
}

func (s *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.pcm) {
		return 0, false
	}
	n := 0
	for i := range samples {
		if s.pos >= len(s.pcm) {
			break
		}
		v := float64(s.pcm[s.pos])
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
		n++
	}
	return n, true
}

func (s *pcmStreamer) Err() error { return nil }
