package watcher

import "github.com/syncthing/notify"

// notifyEvents maps the mask onto ReadDirectoryChangesW filters.
func notifyEvents(mask ChangeMask) []notify.Event {
	var events notify.Event
	if mask.Has(ChangeFileName) {
		events |= notify.FileNotifyChangeFileName
	}
	if mask.Has(ChangeDirName) {
		events |= notify.FileNotifyChangeDirName
	}
	if mask.Has(ChangeSize) {
		events |= notify.FileNotifyChangeSize
	}
	if mask.Has(ChangeLastWrite) {
		events |= notify.FileNotifyChangeLastWrite
	}
	if mask.Has(ChangeCreation) {
		events |= notify.FileNotifyChangeCreation
	}
	if events == 0 {
		return nil
	}
	return []notify.Event{events}
}
