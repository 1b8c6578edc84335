package provision

import (
	"context"
	"fmt"

	"github.com/uoft-netops/uoft-tools/pkg/aruba"
	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// state caches controller data for one run. Groups are fetched once; the
// allowlist is fetched on first use and dropped after every change.
type state struct {
	groups    GroupLister
	allowlist Allowlist

	groupNames map[string]bool
	byName     map[string]aruba.AllowlistEntry
	byMAC      map[string]aruba.AllowlistEntry
}

func (s *state) hasGroup(ctx context.Context, group string) (bool, error) {
	if s.groupNames == nil {
		names, err := s.groups.APGroups(ctx)
		if err != nil {
			return false, fmt.Errorf("listing AP groups: %w", err)
		}
		s.groupNames = make(map[string]bool, len(names))
		for _, n := range names {
			s.groupNames[n] = true
		}
		logger.Debugf("Loaded %d AP groups", len(names))
	}
	return s.groupNames[group], nil
}

func (s *state) load(ctx context.Context) error {
	if s.byMAC != nil {
		return nil
	}
	entries, err := s.allowlist.CPSECAllowlist(ctx)
	if err != nil {
		return fmt.Errorf("reading CPSEC allowlist: %w", err)
	}
	s.byName = make(map[string]aruba.AllowlistEntry, len(entries))
	s.byMAC = make(map[string]aruba.AllowlistEntry, len(entries))
	for _, e := range entries {
		s.remember(e)
	}
	logger.Debugf("Loaded %d allowlist entries", len(entries))
	return nil
}

func (s *state) byNameLookup(ctx context.Context, name string) (aruba.AllowlistEntry, bool, error) {
	if err := s.load(ctx); err != nil {
		return aruba.AllowlistEntry{}, false, err
	}
	e, ok := s.byName[name]
	return e, ok, nil
}

func (s *state) byMACLookup(ctx context.Context, mac string) (aruba.AllowlistEntry, bool, error) {
	if err := s.load(ctx); err != nil {
		return aruba.AllowlistEntry{}, false, err
	}
	e, ok := s.byMAC[mac]
	return e, ok, nil
}

// remember indexes e. Entries without a name or MAC are left out of that index.
func (s *state) remember(e aruba.AllowlistEntry) {
	if mac, err := util.NormalizeMAC(e.MAC); err == nil {
		e.MAC = mac
	}
	if e.Name != "" {
		s.byName[e.Name] = e
	}
	if e.MAC != "" {
		s.byMAC[e.MAC] = e
	}
}

// forget drops e from both indexes.
func (s *state) forget(e aruba.AllowlistEntry) {
	if cur, ok := s.byName[e.Name]; ok && cur.MAC == e.MAC {
		delete(s.byName, e.Name)
	}
	if cur, ok := s.byMAC[e.MAC]; ok && cur.Name == e.Name {
		delete(s.byMAC, e.MAC)
	}
}

func (s *state) invalidate() {
	s.byName = nil
	s.byMAC = nil
}
