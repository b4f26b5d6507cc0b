// Command embytk mirrors an Emby catalog, enriches it with TMDB metadata
// and keeps the series watchlist and its download subscriptions current.
package main

func main() {
	Execute()
}
