// Asset index API: answers which assets of a collection intersect a tile
// footprint, newest first. The heavy lifting happens inside Postgres; this
// process is a thin HTTP front with an optional memcache response cache.

package main

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/nci/gomemcache/memcache"
)

var (
	db       *sql.DB
	mc       *memcache.Client
	dbName   = flag.String("database", "mosaic", "database name")
	dbUser   = flag.String("user", "api", "database user name")
	dbPool   = flag.Int("pool", 8, "database pool size")
	dbLimit  = flag.Int("limit", 64, "database concurrent requests")
	httpPort = flag.Int("port", 8888, "http port")
	mcURI    = flag.String("memcache", "", "memcache uri host:port")
)

// Spit out a simple JSON-formatted error message for Content-Type: application/json
func httpJSONError(response http.ResponseWriter, err error, status int) {
	http.Error(response, fmt.Sprintf(`{ "error": %q }`, err.Error()), status)
}

func handler(response http.ResponseWriter, request *http.Request) {

	response.Header().Set("Content-Type", "application/json")

	if err := request.ParseForm(); err != nil {
		httpJSONError(response, err, 400)
		return
	}

	var hash string

	if mc != nil {

		buff := md5.Sum([]byte(request.URL.RequestURI() + request.FormValue("wkt")))
		hash = hex.EncodeToString(buff[:])

		if cached, ok := mc.Get(hash); ok == nil {
			response.Write(cached.Value)
			return
		}
	}

	query := request.URL.Query()

	if _, ok := query["intersects"]; ok {

		var payload string

		// Use Postgres prepared statements and placeholders for input checks.
		// The nullif() noise is to coerce Go's empty string zero values for
		// missing parameters into proper null arguments. The stored
		// procedure returns { "assets": [ { id, timestamp, footprint }, ... ] }
		// ordered newest first.

		err := db.QueryRow(
			`select mosaic_intersects(
				nullif($1,'')::text,
				nullif($2,'')::text,
				nullif($3,'')::text,
				nullif($4,'')::timestamptz,
				nullif($5,'')::timestamptz,
				nullif($6,'')::integer
			) as json`,
			request.URL.Path,
			request.FormValue("srs"),
			request.FormValue("wkt"),
			request.FormValue("time"),
			request.FormValue("until"),
			request.FormValue("limit"),
		).Scan(&payload)

		if err != nil {
			httpJSONError(response, err, 400)
			return
		}

		io.WriteString(response, payload)

		if mc != nil {
			// don't care about errors; memcache may not necessarily retain this anyway
			mc.Set(&memcache.Item{Key: hash, Value: []byte(payload)})
		}

		return
	}

	httpJSONError(response, errors.New("unknown operation; currently supported: ?intersects"), 400)
}

func main() {

	flag.Parse()

	log.Printf("dbUser %s dbName %s dbPool %d httpPort %d", *dbUser, *dbName, *dbPool, *httpPort)

	dbinfo := fmt.Sprintf("user=%s host=/var/run/postgresql dbname=%s sslmode=disable", *dbUser, *dbName)

	var err error
	db, err = sql.Open("postgres", dbinfo)

	if err != nil {
		panic(err)
	}

	defer db.Close()

	db.SetMaxIdleConns(*dbPool)
	db.SetMaxOpenConns(*dbLimit)

	if *mcURI != "" {
		// lazy connection; errors returned in .Get
		mc = memcache.New(*mcURI)
	}

	http.HandleFunc("/", handler)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *httpPort), nil))
}
