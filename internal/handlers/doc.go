// Package handlers provides HTTP request handlers for the IPTV viewer API.
//
// It includes handlers for:
//   - Windowed channel listing with category, search, and favorites filters
//   - Category and parse diagnostic listing
//   - Playlist library management and loading
//   - Favorite channel management
//   - Health checks and build information
package handlers
