package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           tutord API
// @version         1.0
// @description     HTTP API for tutoring generation tasks over local and remote model backends.
//
// @contact.name   tutord maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
