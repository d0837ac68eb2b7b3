// Package services talks to the two external systems of a sync run.
//
// # Capability Interfaces
//
// The sync engine depends only on [ListingSource], [DetailSource] and [RecordStore],
// so failure injection or a retry policy can wrap them without touching the engine.
// Every implementation here makes exactly one attempt per request.
//
// # Letterboxd
//
// [LetterboxdService] scrapes watchlist pages and film pages with goquery. Requests go
// through [NewScrapeClient], which sends a desktop browser User-Agent plus any headers
// captured with "setup letterboxd". Streaming services are only present after client-side
// scripts run, so [LetterboxdService.FetchServices] loads the film page through a
// [Renderer]; [ChromeRenderer] launches a fresh headless Chrome per call.
//
// # Notion
//
// [NotionService] authenticates with an integration token through an [oauth2.StaticTokenSource]
// and sends the Notion-Version header on every request. Database queries follow
// has_more/next_cursor until exhausted.
//
// # Error Handling
//
//   - [shared.ErrAPIRequest] : transport failure or undecodable response
//   - [StatusError] : non-2xx response carrying URL, status and a body excerpt; matches [shared.ErrUnexpectedStatus]
//   - [shared.ErrBrowserRender] : headless Chrome failed to load or snapshot a page
//   - [shared.ErrMissingCredentials] : Notion token or database id missing
//
// Markup that no longer matches the expected selectors is not an error; parsers
// return empty results instead.
package services
