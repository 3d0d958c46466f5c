package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"watopic/internal/constants"
	"watopic/internal/models"
	"watopic/internal/privacy"
	"watopic/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
)

// DirectoryDatabase defines the persistence operations the directory needs.
type DirectoryDatabase interface {
	SaveIdentity(ctx context.Context, id *models.Identity) error
	GetIdentity(ctx context.Context, jid string) (*models.Identity, error)
	FindIdentitiesByName(ctx context.Context, fragment string) ([]*models.Identity, error)
}

// Directory maintains the identity record for every source-side participant
// and group the bridge has seen. Names are ranked by origin: a contact-book
// name beats a push name, which beats the bare JID, so a lower-ranked
// observation never overwrites a higher-ranked one.
type Directory struct {
	db         DirectoryDatabase
	waClient   types.Client
	logger     *logrus.Logger
	cacheValid time.Duration
}

func NewDirectory(db DirectoryDatabase, waClient types.Client, cacheValidHours int, logger *logrus.Logger) *Directory {
	if cacheValidHours <= 0 {
		cacheValidHours = constants.DefaultContactCacheHours
	}
	return &Directory{
		db:         db,
		waClient:   waClient,
		logger:     logger,
		cacheValid: time.Duration(cacheValidHours) * time.Hour,
	}
}

// Observe records a sighting of jid carrying the given name from the given
// source. It returns the identity after the update, along with whether the
// effective display name changed.
func (d *Directory) Observe(ctx context.Context, jid, name string, source models.NameSource, isGroup bool) (*models.Identity, bool, error) {
	now := time.Now()

	existing, err := d.db.GetIdentity(ctx, jid)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load identity: %w", err)
	}

	if existing == nil {
		id := &models.Identity{
			JID:          jid,
			DisplayName:  name,
			NameSource:   source,
			PhoneNumber:  phoneFromJID(jid),
			IsGroup:      isGroup,
			FirstSeenAt:  now,
			LastSeenAt:   now,
			MessageCount: 1,
		}
		if name == "" {
			id.DisplayName = id.BestName()
			id.NameSource = models.NameSourceJID
		}
		if err := d.db.SaveIdentity(ctx, id); err != nil {
			return nil, false, fmt.Errorf("failed to save identity: %w", err)
		}
		return id, true, nil
	}

	renamed := false
	if name != "" && name != existing.DisplayName &&
		(source.Outranks(existing.NameSource) || source == existing.NameSource) {
		existing.DisplayName = name
		existing.NameSource = source
		renamed = true
	}
	existing.LastSeenAt = now
	existing.MessageCount++

	if err := d.db.SaveIdentity(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("failed to save identity: %w", err)
	}
	return existing, renamed, nil
}

// Resolve returns the best-known display name for jid. A stale record is
// refreshed from the source network first; on refresh failure the stale
// name is still served.
func (d *Directory) Resolve(ctx context.Context, jid string) string {
	id, err := d.db.GetIdentity(ctx, jid)
	if err != nil {
		d.logger.WithError(err).WithField("jid", privacy.MaskJID(jid)).Warn("Failed to read identity")
	}

	if id != nil && time.Since(id.LastSeenAt) < d.cacheValid && id.NameSource == models.NameSourceContact {
		return id.BestName()
	}

	if fresh := d.refreshFromSource(ctx, jid); fresh != "" {
		return fresh
	}
	if id != nil {
		return id.BestName()
	}
	return jid
}

func (d *Directory) refreshFromSource(ctx context.Context, jid string) string {
	if strings.HasSuffix(jid, "@g.us") {
		meta, err := d.waClient.GetGroupMetadata(ctx, jid)
		if err != nil || meta == nil {
			return ""
		}
		if _, _, err := d.Observe(ctx, jid, meta.Subject, models.NameSourceContact, true); err != nil {
			d.logger.WithError(err).Debug("Failed to store refreshed group identity")
		}
		return meta.Subject
	}

	contact, err := d.waClient.GetContact(ctx, jid)
	if err != nil || contact == nil {
		return ""
	}
	name := contact.BestName()
	if name == "" {
		return ""
	}
	if _, _, err := d.Observe(ctx, jid, name, models.NameSourceContact, false); err != nil {
		d.logger.WithError(err).Debug("Failed to store refreshed identity")
	}
	return name
}

// SyncAll pulls the full contact book and joined-group list from the source
// network into the directory. Returns the number of records stored.
func (d *Directory) SyncAll(ctx context.Context) (int, error) {
	stored := 0
	const pageSize = 100

	for offset := 0; ; offset += pageSize {
		contacts, err := d.waClient.GetAllContacts(ctx, pageSize, offset)
		if err != nil {
			return stored, fmt.Errorf("failed to fetch contacts page at offset %d: %w", offset, err)
		}
		if len(contacts) == 0 {
			break
		}
		for i := range contacts {
			name := contacts[i].BestName()
			if name == "" {
				continue
			}
			if _, _, err := d.Observe(ctx, contacts[i].JID, name, models.NameSourceContact, false); err != nil {
				d.logger.WithError(err).WithField("jid", privacy.MaskJID(contacts[i].JID)).Warn("Failed to store contact")
				continue
			}
			stored++
		}
		if len(contacts) < pageSize {
			break
		}
	}

	groups, err := d.waClient.GetJoinedGroups(ctx)
	if err != nil {
		return stored, fmt.Errorf("failed to fetch joined groups: %w", err)
	}
	for i := range groups {
		if _, _, err := d.Observe(ctx, groups[i].JID, groups[i].Subject, models.NameSourceContact, true); err != nil {
			d.logger.WithError(err).WithField("jid", privacy.MaskJID(groups[i].JID)).Warn("Failed to store group")
			continue
		}
		stored++
	}

	d.logger.WithField("count", stored).Info("Directory sync completed")
	return stored, nil
}

// FindByName searches the directory by display-name fragment.
func (d *Directory) FindByName(ctx context.Context, fragment string) ([]*models.Identity, error) {
	return d.db.FindIdentitiesByName(ctx, fragment)
}

// phoneFromJID extracts the phone number from a direct-chat JID. Group and
// broadcast JIDs have no phone component.
func phoneFromJID(jid string) string {
	local, domain, ok := strings.Cut(jid, "@")
	if !ok || domain != "c.us" {
		return ""
	}
	return "+" + local
}
