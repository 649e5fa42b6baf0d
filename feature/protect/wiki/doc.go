// Package wiki is a minimal MediaWiki Action API client for the protection
// reconciler.
//
// It covers exactly the calls the pipeline needs: reading an item page's
// live protection, setting and clearing the highly-used semi-protection,
// fetching site statistics and entity subscriber counts, and saving the
// on-wiki run report. The Client satisfies protect.StateStore,
// protect.SubscriberCounter, protect.SiteStats and protect.ReportPublisher.
//
// Session management is out of scope; authentication is a bearer token
// (owner-only OAuth) attached to every request when configured.
package wiki
