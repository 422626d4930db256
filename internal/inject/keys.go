package inject

import (
	"fmt"
	"sort"

	"github.com/micmonay/keybd_event"
)

// chatKeys maps config names to the virtual key codes that open a chat box.
// t/y/u are the in-game all/team/squadron chat bindings.
var chatKeys = map[string]int{
	"enter": keybd_event.VK_ENTER,
	"t":     keybd_event.VK_T,
	"y":     keybd_event.VK_Y,
	"u":     keybd_event.VK_U,
}

// ChatKey resolves a config name to a key code.
func ChatKey(name string) (int, error) {
	code, ok := chatKeys[name]
	if !ok {
		return 0, fmt.Errorf("unknown chat key %q (valid: %v)", name, ChatKeyNames())
	}
	return code, nil
}

// ChatKeyNames lists the accepted chat key names, sorted.
func ChatKeyNames() []string {
	names := make([]string, 0, len(chatKeys))
	for n := range chatKeys {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
