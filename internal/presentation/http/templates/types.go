package templates

// SiteName is shown in titles and the header.
const SiteName = "pagebin"

// DefaultFooterNote is shown in the shared layout.
const DefaultFooterNote = "Pages are stored exactly as submitted and served at their own address."

// PageCardView is one page on the index.
type PageCardView struct {
	Name         string
	Slug         string
	URL          string
	EditURL      string
	DeleteURL    string
	Thumbnail    string
	Excerpt      string
	CreatedLabel string
	UpdatedLabel string
	Views        int64
}

// SortOptionView is an entry in the sort selector.
type SortOptionView struct {
	Value    string
	Label    string
	Selected bool
}

// IndexPageData contains dynamic values rendered on the landing page.
type IndexPageData struct {
	Query       string
	SortOptions []SortOptionView
	Pages       []PageCardView
	TotalPages  int
}

// FormPageData bundles values for the create and edit forms.
type FormPageData struct {
	Heading          string
	Action           string
	SubmitLabel      string
	Name             string
	Code             string
	ThumbnailOption  string
	ThumbnailURL     string
	CurrentThumbnail string
	AllowKeep        bool
	ErrorMessage     string
}

// TopPageView is a row in the most viewed table.
type TopPageView struct {
	Name  string
	URL   string
	Views int64
}

// StatsPageData holds the aggregates shown on the stats page.
type StatsPageData struct {
	TotalPages   int
	TotalViews   int64
	RecentPages  int
	RecentViews  int64
	AverageViews string
	TopPages     []TopPageView
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
