package audio

import "github.com/gordonklaus/portaudio"

// DeviceInfo describes one capture-capable device. Index is the position in
// portaudio's device table and is what the input_device config refers to.
type DeviceInfo struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
}

// ListDevices enumerates devices that can capture audio.
func ListDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
		})
	}
	return out, nil
}
