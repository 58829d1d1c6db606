package domain

import "time"

// Company identifies the issuer of a press release.
type Company struct {
	Name      string `json:"name" validate:"required"`
	CRONumber string `json:"croNumber" validate:"required,alphanum,max=20"`
	Status    string `json:"status,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Release is the management record for one published press release.
// Keyed by ManagementToken; never hard-deleted.
type Release struct {
	ManagementToken string     `json:"managementToken"`
	Slug            string     `json:"slug"`
	URL             string     `json:"url"`
	Headline        string     `json:"headline"`
	Summary         string     `json:"summary"`
	Content         string     `json:"content"`
	Boilerplate     string     `json:"boilerplate,omitempty"`
	KeyPoints       string     `json:"keyPoints,omitempty"`
	Contact         string     `json:"contact"`
	Company         Company    `json:"company"`
	VerifiedDomain  string     `json:"verifiedDomain"`
	Package         string     `json:"package,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	Published       bool       `json:"published"`
	EditCount       int        `json:"editCount"`
	LastEdited      *time.Time `json:"lastEdited,omitempty"`
	UnpublishedAt   *time.Time `json:"unpublishedAt,omitempty"`
	UnpublishReason string     `json:"unpublishReason,omitempty"`
	Extended        bool       `json:"extended"`
	ExtensionDate   *time.Time `json:"extensionDate,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// ReleaseInput is the content handed to Issue when a release is published.
type ReleaseInput struct {
	Slug           string
	URL            string
	Headline       string
	Summary        string
	Content        string
	Boilerplate    string
	KeyPoints      string
	Contact        string
	Company        Company
	VerifiedDomain string
	Package        string
}

// ReleaseEdit carries the allow-listed editable fields. Nil means unchanged.
type ReleaseEdit struct {
	Headline *string `json:"headline"`
	Summary  *string `json:"summary"`
	Content  *string `json:"content"`
	Contact  *string `json:"contact"`
}

// PublicRelease is what get-pr exposes: the record minus its token.
type PublicRelease struct {
	Slug            string     `json:"slug"`
	URL             string     `json:"url"`
	Headline        string     `json:"headline"`
	Summary         string     `json:"summary"`
	Content         string     `json:"content"`
	Contact         string     `json:"contact"`
	Company         Company    `json:"company"`
	VerifiedDomain  string     `json:"verifiedDomain"`
	CreatedAt       time.Time  `json:"createdAt"`
	Published       bool       `json:"published"`
	EditCount       int        `json:"editCount"`
	LastEdited      *time.Time `json:"lastEdited,omitempty"`
	UnpublishedAt   *time.Time `json:"unpublishedAt,omitempty"`
	Extended        bool       `json:"extended"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	CanEdit         bool       `json:"canEdit"`
	EditDeadline    time.Time  `json:"editDeadline"`
}

// Publication is returned to the publisher once a release is live. The
// management token appears here exactly once.
type Publication struct {
	URL             string `json:"url"`
	ManagementURL   string `json:"managementUrl"`
	Slug            string `json:"slug"`
	Headline        string `json:"headline"`
	Summary         string `json:"summary"`
	Content         string `json:"content"`
	ManagementToken string `json:"managementToken"`
}
