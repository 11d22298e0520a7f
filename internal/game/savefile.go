package game

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultSlot is used when the caller does not name a slot.
const DefaultSlot = "autosave"

// SaveExtension is the Quetzal save format suffix dfrotz writes.
const SaveExtension = ".qzl"

const maxSlotNameLen = 64

var validSlotName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateSlotName rejects names that would escape the save directory
// or collide with another slot's file.
func ValidateSlotName(name string) error {
	if name == "" {
		return fmt.Errorf("slot name cannot be empty")
	}
	if len(name) > maxSlotNameLen {
		return fmt.Errorf("slot name too long (max %d chars)", maxSlotNameLen)
	}
	if !validSlotName.MatchString(name) {
		return fmt.Errorf("slot name must start with alphanumeric and contain only letters, numbers, dots, dashes, or underscores")
	}
	return nil
}

// Savefile is a logical save slot for one game. The slot-to-path
// mapping is a pure function of the game name, slot, and save
// directory; no session state is involved.
type Savefile struct {
	Game string
	Slot string
}

// NewSavefile builds a Savefile, substituting DefaultSlot for an empty
// or blank slot name.
func NewSavefile(gameName, slot string) Savefile {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = DefaultSlot
	}
	return Savefile{Game: gameName, Slot: slot}
}

// Filename returns the file path for this slot inside savesDir.
func (s Savefile) Filename(savesDir string) string {
	base := s.Slot
	if s.Game != "" {
		base = s.Game + "_" + s.Slot
	}
	return filepath.Join(savesDir, base+SaveExtension)
}

// Exists reports whether the slot's file is present in savesDir.
func (s Savefile) Exists(savesDir string) bool {
	_, err := os.Stat(s.Filename(savesDir))
	return err == nil
}

// Remove deletes the slot's file. Removing an absent slot is not an
// error.
func (s Savefile) Remove(savesDir string) error {
	err := os.Remove(s.Filename(savesDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListSlots returns the slot names saved for gameName in savesDir,
// sorted.
func ListSlots(savesDir, gameName string) ([]string, error) {
	entries, err := os.ReadDir(savesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read saves dir: %w", err)
	}

	prefix := gameName + "_"
	var slots []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, SaveExtension) {
			continue
		}
		name = strings.TrimSuffix(name, SaveExtension)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		slots = append(slots, strings.TrimPrefix(name, prefix))
	}
	sort.Strings(slots)
	return slots, nil
}
