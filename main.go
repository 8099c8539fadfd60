package main

import "github.com/meetscribe/scribe-api/cmd"

// @title           Scribe API
// @version         1.0.0
// @description     A speaker-labeled transcription pipeline with progress streaming
// @contact.name    API Support
// @contact.url     https://github.com/meetscribe/scribe-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	cmd.Execute()
}
