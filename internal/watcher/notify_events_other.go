//go:build !windows

package watcher

import "github.com/syncthing/notify"

func notifyEvents(mask ChangeMask) []notify.Event {
	var events notify.Event
	if mask.Has(ChangeFileName) || mask.Has(ChangeDirName) {
		events |= notify.Create | notify.Remove | notify.Rename
	}
	if mask.Has(ChangeCreation) {
		events |= notify.Create
	}
	if mask.Has(ChangeSize) || mask.Has(ChangeLastWrite) {
		events |= notify.Write
	}
	if events == 0 {
		return nil
	}
	return []notify.Event{events}
}
