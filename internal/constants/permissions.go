package constants

const (
	PublishListing   = "publish_listing"
	ModerateListings = "moderate_listings"
	ReviewReports    = "review_reports"
	ManageUsers      = "manage_users"
	ViewBackoffice   = "view_backoffice"
)
