package boards

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type MemberStatus string

const (
	StatusInvited   MemberStatus = "invited"
	StatusJoined    MemberStatus = "joined"
	StatusRequested MemberStatus = "requested"
)

type BoardStatus string

const (
	BoardActive   BoardStatus = "ACTIVE"
	BoardInactive BoardStatus = "INACTIVE"
	BoardArchived BoardStatus = "ARCHIVED"
	BoardPending  BoardStatus = "PENDING"
	BoardRejected BoardStatus = "REJECTED"
)

type BoardType string

const (
	TypePublic    BoardType = "PUBLIC"
	TypeCommunity BoardType = "COMMUNITY"
	TypePrivate   BoardType = "PRIVATE"
	TypeSponsored BoardType = "SPONSORED"
)

// BoardInfo is the summary embedded in a membership.
type BoardInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	OwnerID     string      `json:"ownerId"`
	MemberCount int         `json:"memberCount"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	InviteCode  string      `json:"inviteCode,omitempty"`
	CoverImage  string      `json:"coverImage,omitempty"`
	BoardImage  string      `json:"boardImage,omitempty"`
	BoardStatus BoardStatus `json:"boardStatus"`
	BoardType   BoardType   `json:"boardType"`
}

// MyBoard is one of the current user's memberships.
type MyBoard struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	BoardID   string       `json:"boardId"`
	BoardInfo *BoardInfo   `json:"boardInfo"`
}

type MyBoardsResult struct {
	Data    []MyBoard `json:"data"`
	Success bool      `json:"success"`
	Message string    `json:"message"`
}

type BoardMember struct {
	ID         string       `json:"id"`
	BoardID    string       `json:"boardId"`
	Email      string       `json:"email"`
	Role       Role         `json:"role"`
	Status     MemberStatus `json:"status"`
	AgreeTerms bool         `json:"agreeTerms"`
	Name       string       `json:"name,omitempty"`
	Avatar     string       `json:"avatar,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// DisplayName falls back to the email when the member has no name.
func (m BoardMember) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Email
}

// Board is the full board record returned by getBoardsById.
type Board struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Slug               string      `json:"slug,omitempty"`
	Description        string      `json:"description,omitempty"`
	BoardType          BoardType   `json:"boardType"`
	BoardStatus        BoardStatus `json:"boardStatus"`
	BoardPriority      *int        `json:"boardPriority,omitempty"`
	BoardCategory      string      `json:"boardCategory,omitempty"`
	BoardSubCategory   string      `json:"boardSubCategory,omitempty"`
	BoardTags          []string    `json:"boardTags,omitempty"`
	BoardLabels        []string    `json:"boardLabels,omitempty"`
	PoolID             string      `json:"poolId,omitempty"`
	OwnerID            string      `json:"ownerId"`
	MemberCount        int         `json:"memberCount"`
	MemberLimit        *int        `json:"memberLimit,omitempty"`
	InviteCode         string      `json:"inviteCode,omitempty"`
	CoverImage         string      `json:"coverImage,omitempty"`
	BoardImage         string      `json:"boardImage,omitempty"`
	TermsAndConditions string      `json:"termsAndConditions,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}
