package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           scadd API
// @version         1.0
// @description     HTTP API for parametric 3D design rendering.
//
// @contact.name   scadd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
