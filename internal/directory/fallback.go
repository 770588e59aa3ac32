package directory

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type builtinOrganization struct {
	key  string
	info OrganizationInfo
}

// builtinOrganizations is checked in order; the first key that matches wins.
var builtinOrganizations = []builtinOrganization{
	{"google", OrganizationInfo{
		Name:        "Google",
		Industry:    "Technology",
		Location:    "Mountain View, CA",
		Description: "Google is a multinational technology company that specializes in Internet-related services and products.",
		Website:     "https://www.google.com",
		ProfileURL:  "https://www.linkedin.com/company/google/",
		LogoURL:     "https://upload.wikimedia.org/wikipedia/commons/thumb/5/53/Google_%22G%22_Logo.svg/2048px-Google_%22G%22_Logo.svg.png",
	}},
	{"microsoft", OrganizationInfo{
		Name:        "Microsoft",
		Industry:    "Technology",
		Location:    "Redmond, WA",
		Description: "Microsoft is a multinational technology company that develops, manufactures, licenses, supports, and sells computer software, consumer electronics, and personal computers and services.",
		Website:     "https://www.microsoft.com",
		ProfileURL:  "https://www.linkedin.com/company/microsoft/",
		LogoURL:     "https://upload.wikimedia.org/wikipedia/commons/thumb/4/44/Microsoft_logo.svg/2048px-Microsoft_logo.svg.png",
	}},
	{"apple", OrganizationInfo{
		Name:        "Apple",
		Industry:    "Technology",
		Location:    "Cupertino, CA",
		Description: "Apple is a multinational technology company that designs, develops, and sells consumer electronics, computer software, and online services.",
		Website:     "https://www.apple.com",
		ProfileURL:  "https://www.linkedin.com/company/apple/",
		LogoURL:     "https://upload.wikimedia.org/wikipedia/commons/thumb/f/fa/Apple_logo_black.svg/1667px-Apple_logo_black.svg.png",
	}},
	{"amazon", OrganizationInfo{
		Name:        "Amazon",
		Industry:    "E-commerce, Cloud Computing",
		Location:    "Seattle, WA",
		Description: "Amazon is a multinational technology company focusing on e-commerce, cloud computing, digital streaming, and artificial intelligence.",
		Website:     "https://www.amazon.com",
		ProfileURL:  "https://www.linkedin.com/company/amazon/",
		LogoURL:     "https://upload.wikimedia.org/wikipedia/commons/thumb/a/a9/Amazon_logo.svg/2560px-Amazon_logo.svg.png",
	}},
	{"facebook", OrganizationInfo{
		Name:        "Meta (formerly Facebook)",
		Industry:    "Technology, Social Media",
		Location:    "Menlo Park, CA",
		Description: "Meta Platforms, Inc., doing business as Meta and formerly known as Facebook, Inc., is a multinational technology conglomerate that owns Facebook, Instagram, and WhatsApp, among other products and services.",
		Website:     "https://about.meta.com",
		ProfileURL:  "https://www.linkedin.com/company/meta/",
		LogoURL:     "https://upload.wikimedia.org/wikipedia/commons/thumb/7/7b/Meta_Platforms_Inc._logo.svg/2560px-Meta_Platforms_Inc._logo.svg.png",
	}},
}

// FallbackOrganization resolves name against the built-in table by
// case-insensitive substring match in either direction, or returns the
// generic placeholder record.
func FallbackOrganization(name string) OrganizationInfo {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower != "" {
		for _, b := range builtinOrganizations {
			if strings.Contains(lower, b.key) || strings.Contains(b.key, lower) {
				info := b.info
				info.Source = SourceBuiltin
				return info
			}
		}
	}
	return PlaceholderOrganization(name)
}

// PlaceholderOrganization is the record returned when nothing is known about name.
func PlaceholderOrganization(name string) OrganizationInfo {
	return OrganizationInfo{
		Name:        name,
		Industry:    "Unknown",
		Location:    "Unknown",
		Description: NoDescription,
		Source:      SourcePlaceholder,
	}
}

type roleSkills struct {
	key       string
	expertise []string
}

var roleExpertise = []roleSkills{
	{"software engineer", []string{"Programming", "Software Development", "Algorithms", "Problem Solving", "System Design"}},
	{"data scientist", []string{"Machine Learning", "Data Analysis", "Statistics", "Python", "Data Visualization"}},
	{"product manager", []string{"Product Strategy", "User Experience", "Agile", "Market Research", "Roadmapping"}},
	{"marketing", []string{"Digital Marketing", "Content Strategy", "Social Media", "SEO", "Analytics"}},
	{"sales", []string{"Sales Strategy", "Negotiation", "Client Relationships", "Business Development", "CRM"}},
	{"designer", []string{"UI/UX Design", "Graphic Design", "Wireframing", "Prototyping", "User Research"}},
	{"hr", []string{"Recruitment", "Employee Relations", "Talent Management", "Compensation", "Organizational Development"}},
}

var defaultExpertise = []string{"Leadership", "Communication", "Problem Solving", "Strategic Thinking", "Innovation"}

// ExpertiseFor returns the skill list of the first role key matching role.
func ExpertiseFor(role string) []string {
	lower := strings.ToLower(strings.TrimSpace(role))
	if lower != "" {
		for _, r := range roleExpertise {
			if strings.Contains(lower, r.key) || strings.Contains(r.key, lower) {
				return append([]string(nil), r.expertise...)
			}
		}
	}
	return append([]string(nil), defaultExpertise...)
}

// SyntheticProfiles generates representative, clearly non-real profiles for a
// role. With an organization it returns three organization-specific entries,
// otherwise two generic ones.
func SyntheticProfiles(role, organization string) []Profile {
	expertise := ExpertiseFor(role)
	title := titleCase(role)
	if title == "" {
		title = "Professional"
	}

	if organization != "" {
		return []Profile{
			{Name: "Senior " + title + " Professional", Title: "Senior " + title, Organization: organization, Location: "United States", Expertise: expertise},
			{Name: title + " Leader", Title: title + " Team Lead", Organization: organization, Location: "United States", Expertise: append([]string(nil), expertise...)},
			{Name: title + " Manager", Title: title + " Manager", Organization: organization, Location: "United States", Expertise: append([]string(nil), expertise...)},
		}
	}

	return []Profile{
		{Name: "Senior " + title, Title: "Senior " + title, Organization: "Technology Company", Location: "San Francisco, CA", Expertise: expertise},
		{Name: "Director, " + title, Title: "Director of " + title, Organization: "SaaS Platform", Location: "Austin, TX", Expertise: append([]string(nil), expertise...)},
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
