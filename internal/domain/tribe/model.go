package tribe

import "time"

// Category is one of the four shareable item categories. Permissions are
// granted per category with no hierarchy between them.
type Category string

const (
	CategoryTask        Category = "task"
	CategoryRoutine     Category = "routine"
	CategoryAppointment Category = "appointment"
	CategoryGrocery     Category = "grocery"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryTask, CategoryRoutine, CategoryAppointment, CategoryGrocery:
		return true
	}
	return false
}

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

type ManagementScope string

const (
	ScopeOnlyShared        ManagementScope = "only_shared"
	ScopeSharedAndPersonal ManagementScope = "shared_and_personal"
)

type RequestState string

const (
	RequestStatePending  RequestState = "pending"
	RequestStateApproved RequestState = "approved"
	RequestStateDenied   RequestState = "denied"
)

// Tribe is a named group of users who share items. Tribes are soft-deleted;
// a deleted tribe stays readable but rejects every mutation.
type Tribe struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	Name      string     `gorm:"not null"`
	OwnerID   string     `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`
}

func (Tribe) TableName() string {
	return "tribes"
}

func (t Tribe) Deleted() bool {
	return t.DeletedAt != nil
}

// Member is one user's relationship to one tribe.
//
// acceptedAt == nil && leftAt == nil  => pending invitation
// acceptedAt != nil && leftAt == nil  => active member
// leftAt != nil                       => former member; the row is kept for
// audit and is permanently excluded from fan-out. Re-inviting creates a new row.
type Member struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	TribeID         string          `gorm:"type:uuid;not null;index"`
	UserID          string          `gorm:"type:uuid;not null;index"`
	InvitedBy       string          `gorm:"type:uuid;not null"`
	InvitedAt       time.Time       `gorm:"autoCreateTime"`
	AcceptedAt      *time.Time      ``
	LeftAt          *time.Time      ``
	ManagementScope ManagementScope `gorm:"type:varchar(32);not null;default:only_shared"`
	ProposalNotifs  bool            `gorm:"not null;default:true"`
	DigestNotifs    bool            `gorm:"not null;default:true"`

	Permissions Permissions `gorm:"foreignKey:MemberID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Member) TableName() string {
	return "tribe_members"
}

func (m Member) Pending() bool {
	return m.AcceptedAt == nil && m.LeftAt == nil
}

func (m Member) Active() bool {
	return m.AcceptedAt != nil && m.LeftAt == nil
}

// Permissions holds the eight independent capabilities for one member.
type Permissions struct {
	MemberID              string `gorm:"type:uuid;primaryKey"`
	CanAddTasks           bool   `gorm:"not null;default:false"`
	CanRemoveTasks        bool   `gorm:"not null;default:false"`
	CanAddRoutines        bool   `gorm:"not null;default:false"`
	CanRemoveRoutines     bool   `gorm:"not null;default:false"`
	CanAddAppointments    bool   `gorm:"not null;default:false"`
	CanRemoveAppointments bool   `gorm:"not null;default:false"`
	CanAddGroceries       bool   `gorm:"not null;default:false"`
	CanRemoveGroceries    bool   `gorm:"not null;default:false"`
}

func (Permissions) TableName() string {
	return "tribe_member_permissions"
}

// Allows reports whether the capability for (action, category) is granted.
func (p Permissions) Allows(action Action, category Category) bool {
	switch action {
	case ActionAdd:
		switch category {
		case CategoryTask:
			return p.CanAddTasks
		case CategoryRoutine:
			return p.CanAddRoutines
		case CategoryAppointment:
			return p.CanAddAppointments
		case CategoryGrocery:
			return p.CanAddGroceries
		}
	case ActionRemove:
		switch category {
		case CategoryTask:
			return p.CanRemoveTasks
		case CategoryRoutine:
			return p.CanRemoveRoutines
		case CategoryAppointment:
			return p.CanRemoveAppointments
		case CategoryGrocery:
			return p.CanRemoveGroceries
		}
	}
	return false
}

// DefaultInviteePermissions is the grant applied to non-owner invitees when
// the inviter does not specify one: add everywhere, remove nowhere.
func DefaultInviteePermissions() Permissions {
	return Permissions{
		CanAddTasks:        true,
		CanAddRoutines:     true,
		CanAddAppointments: true,
		CanAddGroceries:    true,
	}
}

// OwnerPermissions grants everything. Owners bypass permission checks anyway;
// the row exists so permission listings stay uniform.
func OwnerPermissions() Permissions {
	return Permissions{
		CanAddTasks:           true,
		CanRemoveTasks:        true,
		CanAddRoutines:        true,
		CanRemoveRoutines:     true,
		CanAddAppointments:    true,
		CanRemoveAppointments: true,
		CanAddGroceries:       true,
		CanRemoveGroceries:    true,
	}
}

// MemberRequest is a non-owner's request to add a user, resolved by the owner.
type MemberRequest struct {
	ID              string       `gorm:"type:uuid;primaryKey"`
	TribeID         string       `gorm:"type:uuid;not null;index"`
	RequestedBy     string       `gorm:"type:uuid;not null"`
	RequestedUserID string       `gorm:"type:uuid;not null"`
	State           RequestState `gorm:"type:varchar(16);not null"`
	CreatedAt       time.Time    `gorm:"autoCreateTime"`
	ResolvedAt      *time.Time   ``
	ResolvedBy      *string      `gorm:"type:uuid"`
}

func (MemberRequest) TableName() string {
	return "tribe_member_requests"
}

// InviteLink is a shareable token that lets anyone holding the URL join the
// tribe directly, skipping the invite/accept handshake. Links can cap total
// uses and carry an expiry; joins through a link are attributed to whoever
// created it.
type InviteLink struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	TribeID   string     `gorm:"type:uuid;not null;index"`
	Token     string     `gorm:"not null;uniqueIndex"`
	CreatedBy string     `gorm:"type:uuid;not null"`
	MaxUses   *int       ``
	UsedCount int        `gorm:"not null;default:0"`
	ExpiresAt *time.Time ``
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (InviteLink) TableName() string {
	return "tribe_invite_links"
}

func (l InviteLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

func (l InviteLink) Exhausted() bool {
	return l.MaxUses != nil && l.UsedCount >= *l.MaxUses
}

// Activity is a best-effort audit entry for membership events.
type Activity struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	TribeID   string    `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(32);not null"`
	Message   string    `gorm:"not null"`
	CreatedBy *string   `gorm:"type:uuid"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Activity) TableName() string {
	return "tribe_activities"
}

const ActivityTypeSystem = "system"

// TribeSummary is a tribe plus the caller's membership view of it.
type TribeSummary struct {
	Tribe            Tribe
	Member           Member
	PendingProposals int64
}

// PermissionsPatch is a partial update of the eight capability booleans.
type PermissionsPatch struct {
	CanAddTasks           *bool
	CanRemoveTasks        *bool
	CanAddRoutines        *bool
	CanRemoveRoutines     *bool
	CanAddAppointments    *bool
	CanRemoveAppointments *bool
	CanAddGroceries       *bool
	CanRemoveGroceries    *bool
}

func (p PermissionsPatch) apply(target *Permissions) {
	if p.CanAddTasks != nil {
		target.CanAddTasks = *p.CanAddTasks
	}
	if p.CanRemoveTasks != nil {
		target.CanRemoveTasks = *p.CanRemoveTasks
	}
	if p.CanAddRoutines != nil {
		target.CanAddRoutines = *p.CanAddRoutines
	}
	if p.CanRemoveRoutines != nil {
		target.CanRemoveRoutines = *p.CanRemoveRoutines
	}
	if p.CanAddAppointments != nil {
		target.CanAddAppointments = *p.CanAddAppointments
	}
	if p.CanRemoveAppointments != nil {
		target.CanRemoveAppointments = *p.CanRemoveAppointments
	}
	if p.CanAddGroceries != nil {
		target.CanAddGroceries = *p.CanAddGroceries
	}
	if p.CanRemoveGroceries != nil {
		target.CanRemoveGroceries = *p.CanRemoveGroceries
	}
}
