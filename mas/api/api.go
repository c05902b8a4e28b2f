// Metadata API
// Copyright (c) 2017, NCI, Australian National University.

package main

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/mas/index"
	"github.com/nci/eodatasets/utils"
	"github.com/nci/gomemcache/memcache"
	"golang.org/x/net/context"
)

var (
	configFile = flag.String("config", "", "config file (default: eo3.yaml on the etc dir)")
	etcDir     = flag.String("etc", ".", "colon separated config search path")
	dbPool     = flag.Int("pool", 8, "database pool size")
	dbLimit    = flag.Int("limit", 64, "database concurrent requests")
	listLimit  = flag.Int("list_limit", 1000, "maximum datasets listed per product")
)

type datasetStore interface {
	Lookup(ctx context.Context, id uuid.UUID) ([]byte, error)
	Product(ctx context.Context, product string, limit int) ([]index.Record, error)
}

type cache interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

type server struct {
	store        datasetStore
	mc           cache
	cacheSeconds int32
	listLimit    int
}

// Spit out a simple JSON-formatted error message for Content-Type: application/json
func httpJSONError(response http.ResponseWriter, err error, status int) {
	http.Error(response, fmt.Sprintf(`{ "error": %q }`, err.Error()), status)
}

func (s *server) ServeHTTP(response http.ResponseWriter, request *http.Request) {

	response.Header().Set("Content-Type", "application/json")

	var hash string

	if s.mc != nil {

		buff := md5.Sum([]byte(request.URL.RequestURI()))
		hash = hex.EncodeToString(buff[:])

		if cached, ok := s.mc.Get(hash); ok == nil {
			response.Write(cached.Value)
			return
		}
	}

	query := request.URL.Query()
	ctx := request.Context()

	var payload []byte

	switch {
	case query.Get("id") != "":
		id, err := uuid.Parse(query.Get("id"))
		if err != nil {
			httpJSONError(response, fmt.Errorf("invalid dataset id: %v", err), 400)
			return
		}
		payload, err = s.store.Lookup(ctx, id)
		if err == index.ErrNotFound {
			httpJSONError(response, err, 404)
			return
		}
		if err != nil {
			httpJSONError(response, err, 500)
			return
		}

	case query.Get("product") != "":
		limit := s.listLimit
		if l := query.Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				httpJSONError(response, fmt.Errorf("invalid limit %q", l), 400)
				return
			}
			if n < limit {
				limit = n
			}
		}
		records, err := s.store.Product(ctx, query.Get("product"), limit)
		if err != nil {
			httpJSONError(response, err, 500)
			return
		}
		payload, err = json.Marshal(records)
		if err != nil {
			httpJSONError(response, err, 500)
			return
		}

	default:
		httpJSONError(response, errors.New("unknown operation; currently supported: ?id, ?product"), 400)
		return
	}

	response.Write(payload)

	if s.mc != nil {
		// don't care about errors; memcache may not necessarily retain this anyway
		s.mc.Set(&memcache.Item{Key: hash, Value: payload, Expiration: s.cacheSeconds})
	}
}

func main() {

	flag.Parse()

	utils.EtcDir = *etcDir
	if *configFile == "" {
		*configFile = utils.FindConfigFile()
	}
	config, err := utils.LoadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	mas := config.MAS
	if mas.DSN == "" {
		log.Fatalf("No database given: set mas.dsn in the config file or %s", utils.EnvMASDSN)
	}

	log.Printf("table %s dbPool %d listen %s", mas.Table, *dbPool, mas.ListenAddr)

	publisher, err := index.Open(mas.DSN, mas.Table)
	if err != nil {
		panic(err)
	}

	defer publisher.Close()

	publisher.DB.SetMaxIdleConns(*dbPool)
	publisher.DB.SetMaxOpenConns(*dbLimit)

	s := &server{store: publisher, cacheSeconds: mas.CacheSeconds, listLimit: *listLimit}
	if mas.MemcacheAddr != "" {
		// lazy connection; errors returned in .Get
		s.mc = memcache.New(mas.MemcacheAddr)
	}

	http.Handle("/", s)
	log.Fatal(http.ListenAndServe(mas.ListenAddr, nil))
}
