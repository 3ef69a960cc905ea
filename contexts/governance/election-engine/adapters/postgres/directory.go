package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"orgnet/contexts/governance/election-engine/domain/entities"
	"orgnet/contexts/governance/election-engine/ports"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
)

const (
	memberStatusActive = "active"

	defaultRoleCacheSize = 4096
	defaultRoleCacheTTL  = 30 * time.Second
)

// Directory reads the membership, role, tier and attendance projections
// maintained by the organization context. Role lookups are cached briefly
// because every administrative command checks them.
type Directory struct {
	db     *gorm.DB
	logger *slog.Logger
	roles  *expirable.LRU[string, []string]
}

func NewDirectory(db *gorm.DB, logger *slog.Logger, roleCacheTTL time.Duration) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	if roleCacheTTL <= 0 {
		roleCacheTTL = defaultRoleCacheTTL
	}
	return &Directory{
		db:     db,
		logger: logger,
		roles:  expirable.NewLRU[string, []string](defaultRoleCacheSize, nil, roleCacheTTL),
	}
}

func (d *Directory) IsActiveMember(ctx context.Context, organizationID string, userID string) (bool, error) {
	member, found, err := d.member(ctx, organizationID, userID)
	if err != nil || !found {
		return false, err
	}
	return strings.EqualFold(member.Status, memberStatusActive), nil
}

func (d *Directory) MemberRoles(ctx context.Context, organizationID string, userID string) ([]string, error) {
	key := strings.TrimSpace(organizationID) + "/" + strings.TrimSpace(userID)
	if cached, ok := d.roles.Get(key); ok {
		return append([]string(nil), cached...), nil
	}
	var roles []string
	if err := d.db.WithContext(ctx).
		Model(&memberRoleModel{}).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("role ASC").
		Pluck("role", &roles).Error; err != nil {
		return nil, d.logError("election_directory_roles_failed", err, "organization_id", strings.TrimSpace(organizationID))
	}
	d.roles.Add(key, roles)
	return append([]string(nil), roles...), nil
}

// VotingPolicy returns the zero policy, which requires no attendance, when
// the member has no tier or the tier has no policy row.
func (d *Directory) VotingPolicy(ctx context.Context, organizationID string, userID string) (entities.TierVotingPolicy, error) {
	member, found, err := d.member(ctx, organizationID, userID)
	if err != nil || !found || strings.TrimSpace(member.Tier) == "" {
		return entities.TierVotingPolicy{}, err
	}
	var tier membershipTierModel
	err = d.db.WithContext(ctx).
		Where("organization_id = ?", member.OrganizationID).
		Where("tier = ?", member.Tier).
		First(&tier).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TierVotingPolicy{Tier: member.Tier}, nil
		}
		return entities.TierVotingPolicy{}, d.logError("election_directory_tier_failed", err,
			"organization_id", member.OrganizationID,
			"tier", member.Tier,
		)
	}
	return entities.TierVotingPolicy{
		Tier:                 tier.Tier,
		RequiresAttendance:   tier.RequiresAttendance,
		MinAttendancePercent: tier.MinAttendancePercent,
		LookbackDays:         tier.LookbackDays,
	}, nil
}

// AttendancePercentage treats a window without meetings as full attendance.
func (d *Directory) AttendancePercentage(
	ctx context.Context,
	organizationID string,
	userID string,
	from time.Time,
	to time.Time,
) (float64, error) {
	var counts struct {
		Held     int64
		Attended int64
	}
	err := d.db.WithContext(ctx).
		Model(&attendanceModel{}).
		Select("COUNT(*) AS held, COUNT(*) FILTER (WHERE attended) AS attended").
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("meeting_at >= ? AND meeting_at <= ?", from.UTC(), to.UTC()).
		Scan(&counts).
		Error
	if err != nil {
		return 0, d.logError("election_directory_attendance_failed", err, "organization_id", strings.TrimSpace(organizationID))
	}
	if counts.Held == 0 {
		return 100, nil
	}
	return float64(counts.Attended) * 100 / float64(counts.Held), nil
}

func (d *Directory) member(ctx context.Context, organizationID string, userID string) (memberModel, bool, error) {
	var row memberModel
	err := d.db.WithContext(ctx).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return memberModel{}, false, nil
		}
		return memberModel{}, false, d.logError("election_directory_member_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
		)
	}
	return row, true, nil
}

func (d *Directory) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	d.logger.Error("election directory lookup failed", fields...)
	return err
}

var _ ports.MembershipDirectory = (*Directory)(nil)
var _ ports.AttendanceSource = (*Directory)(nil)
