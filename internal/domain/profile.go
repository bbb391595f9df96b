package domain

// Profile holds the kind-specific directory attributes of an account.
type Profile struct {
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Bio      string `json:"bio,omitempty"`

	University        string `json:"university,omitempty"`
	UniversityCountry string `json:"university_country,omitempty"`
	Major             string `json:"major,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
	IsCurrentStudent  bool   `json:"is_current_student,omitempty"`
	CurrentCompany    string `json:"current_company,omitempty"`
	CurrentPosition   string `json:"current_position,omitempty"`

	LinkedInURL     string `json:"linkedin_url,omitempty"`
	InstagramURL    string `json:"instagram_url,omitempty"`
	XTwitterURL     string `json:"x_twitter_url,omitempty"`
	TelegramURL     string `json:"telegram_url,omitempty"`
	GitHubURL       string `json:"github_url,omitempty"`
	PersonalWebsite string `json:"personal_website,omitempty"`

	CompanyName    string `json:"company_name,omitempty"`
	CompanyCountry string `json:"company_country,omitempty"`
	Industry       string `json:"industry,omitempty"`
}

// ForKind returns a copy of p without the fields of the other account kind.
func (p Profile) ForKind(kind AccountKind) Profile {
	out := p
	switch kind {
	case AccountKindMember:
		out.CompanyName, out.CompanyCountry, out.Industry = "", "", ""
	case AccountKindCompany:
		out.FullName = ""
		out.University, out.UniversityCountry, out.Major = "", "", ""
		out.StartDate, out.EndDate, out.IsCurrentStudent = "", "", false
		out.CurrentCompany, out.CurrentPosition = "", ""
	}
	return out
}
