package extract

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/routelab/routemap/internal/lang"
	"github.com/routelab/routemap/internal/topology"
)

func extractFile(t *testing.T, relPath, source string) []topology.Declaration {
	t.Helper()
	e, err := New("demo", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()
	b := topology.NewBatch()
	if _, err := e.File(relPath, []byte(source), b); err != nil {
		t.Fatalf("File: %v", err)
	}
	return b.Finalize()
}

func declNamed(t *testing.T, decls []topology.Declaration, suffix string) topology.Declaration {
	t.Helper()
	for _, d := range decls {
		if strings.HasSuffix(d.Name, suffix) {
			return d
		}
	}
	t.Fatalf("no declaration named *%s in %d declarations", suffix, len(decls))
	return topology.Declaration{}
}

func withMarker(decls []topology.Declaration, m topology.RoleMarker) []topology.Declaration {
	var out []topology.Declaration
	for _, d := range decls {
		for _, dm := range d.Markers {
			if dm == m {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func TestExtractCSharpController(t *testing.T) {
	source := `
using Microsoft.AspNetCore.Mvc;

namespace Shop.Api
{
    [ApiController]
    [Route("api/users")]
    public class UsersController : ControllerBase
    {
        [HttpGet]
        public IActionResult List() => Ok();

        [HttpGet("{id:int}")]
        public IActionResult Get(int id) => Ok();

        [HttpPost]
        public IActionResult Create() => Ok();
    }
}
`
	decls := extractFile(t, "api/UsersController.cs", source)

	groups := withMarker(decls, topology.MarkerGroup)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].RawPath != "api/users" {
		t.Errorf("group prefix = %q, want api/users", groups[0].RawPath)
	}
	if groups[0].Identity != groupIdentity("UsersController") {
		t.Errorf("group identity not derived from class name")
	}

	endpoints := withMarker(decls, topology.MarkerEndpoint)
	if len(endpoints) != 3 {
		t.Fatalf("endpoints = %d, want 3", len(endpoints))
	}
	for _, ep := range endpoints {
		if ep.Parent != groups[0].Identity {
			t.Errorf("%s parent = %v, want enclosing controller", ep.Name, ep.Parent)
		}
	}
	get := declNamed(t, endpoints, ".Get")
	if get.RawPath != "{id:int}" || len(get.Methods) != 1 || get.Methods[0] != "GET" {
		t.Errorf("Get = %+v", get)
	}
	create := declNamed(t, endpoints, ".Create")
	if create.Methods[0] != "POST" {
		t.Errorf("Create methods = %v", create.Methods)
	}
}

func TestExtractPythonDecorators(t *testing.T) {
	source := `
from fastapi import FastAPI

app = FastAPI()

@app.get("/users")
def list_users():
    return []

@app.route("/items", methods=["GET", "POST"])
def items():
    return []

def helper():
    return None
`
	decls := extractFile(t, "app/main.py", source)

	endpoints := withMarker(decls, topology.MarkerEndpoint)
	if len(endpoints) != 2 {
		t.Fatalf("endpoints = %d, want 2", len(endpoints))
	}
	users := declNamed(t, endpoints, ".list_users")
	if users.RawPath != "/users" || users.Methods[0] != "GET" {
		t.Errorf("list_users = %+v", users)
	}
	if users.Parent != topology.None {
		t.Errorf("module-level handler has parent %v", users.Parent)
	}
	items := declNamed(t, endpoints, ".items")
	if items.RawPath != "/items" {
		t.Errorf("items path = %q", items.RawPath)
	}
	if len(items.Methods) != 2 || items.Methods[0] != "GET" || items.Methods[1] != "POST" {
		t.Errorf("items methods = %v", items.Methods)
	}
}

func TestExtractNestController(t *testing.T) {
	source := `
import { Controller, Get, Post } from '@nestjs/common';

@Controller('users')
export class UsersController {
  @Get()
  findAll(): string[] {
    return [];
  }

  @Get(':id')
  findOne(): string {
    return '';
  }

  @Post('new')
  create(): void {}
}
`
	decls := extractFile(t, "src/users.controller.ts", source)

	groups := withMarker(decls, topology.MarkerGroup)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].RawPath != "users" {
		t.Errorf("group prefix = %q, want users", groups[0].RawPath)
	}

	endpoints := withMarker(decls, topology.MarkerEndpoint)
	if len(endpoints) != 3 {
		t.Fatalf("endpoints = %d, want 3", len(endpoints))
	}
	findOne := declNamed(t, endpoints, ".findOne")
	if findOne.RawPath != ":id" || findOne.Methods[0] != "GET" {
		t.Errorf("findOne = %+v", findOne)
	}
	findAll := declNamed(t, endpoints, ".findAll")
	if findAll.RawPath != "" {
		t.Errorf("findAll path = %q, want empty", findAll.RawPath)
	}
	for _, ep := range endpoints {
		if ep.Parent != groups[0].Identity {
			t.Errorf("%s not parented to controller", ep.Name)
		}
	}
}

func TestExtractSpringController(t *testing.T) {
	source := `
package shop;

import org.springframework.web.bind.annotation.*;

@RestController
@RequestMapping("/api/orders")
public class OrderController {

    @GetMapping("/{id}")
    public String get() { return ""; }

    @PostMapping
    public String create() { return ""; }
}
`
	decls := extractFile(t, "src/OrderController.java", source)

	groups := withMarker(decls, topology.MarkerGroup)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].RawPath != "/api/orders" {
		t.Errorf("group prefix = %q", groups[0].RawPath)
	}

	endpoints := withMarker(decls, topology.MarkerEndpoint)
	if len(endpoints) != 2 {
		t.Fatalf("endpoints = %d, want 2", len(endpoints))
	}
	get := declNamed(t, endpoints, ".get")
	if get.RawPath != "/{id}" || get.Methods[0] != "GET" {
		t.Errorf("get = %+v", get)
	}
	create := declNamed(t, endpoints, ".create")
	if create.RawPath != "" || create.Methods[0] != "POST" {
		t.Errorf("create = %+v", create)
	}
}

func TestExtractGoDirectives(t *testing.T) {
	source := `
package api

import "net/http"

//route:GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {}

//routegroup:Admin /admin
type AdminRoutes struct{}

//route:GET,POST /users group=Admin
func Users(w http.ResponseWriter, r *http.Request) {}

// plain doc comment, no directive
func helper() {}
`
	decls := extractFile(t, "api/routes.go", source)

	if len(decls) != 3 {
		t.Fatalf("declarations = %d, want 3", len(decls))
	}
	health := declNamed(t, decls, ".Health")
	if health.RawPath != "/healthz" || health.Methods[0] != "GET" || health.Parent != topology.None {
		t.Errorf("Health = %+v", health)
	}
	admin := declNamed(t, decls, ".AdminRoutes")
	if admin.Identity != groupIdentity("Admin") || admin.RawPath != "/admin" {
		t.Errorf("AdminRoutes = %+v", admin)
	}
	users := declNamed(t, decls, ".Users")
	if users.Parent != groupIdentity("Admin") {
		t.Errorf("Users parent = %v, want Admin group", users.Parent)
	}
	if len(users.Methods) != 2 || users.Methods[0] != "GET" || users.Methods[1] != "POST" {
		t.Errorf("Users methods = %v", users.Methods)
	}
}

func TestExtractGoDualDirective(t *testing.T) {
	source := `
package api

//routegroup:Legacy /legacy
//route:GET /legacy
func Mixed() {}
`
	decls := extractFile(t, "api/legacy.go", source)
	if len(decls) != 1 {
		t.Fatalf("declarations = %d, want 1", len(decls))
	}
	if len(decls[0].Markers) != 2 {
		t.Errorf("markers = %v, want both roles", decls[0].Markers)
	}
}

func TestExtractExpressRegistrations(t *testing.T) {
	source := `
const express = require('express');
const app = express();
const router = express.Router();

router.get('/users', (req, res) => res.json([]));
router.post('/users', createUser);

app.use('/api', router);
app.get('/healthz', (req, res) => res.send('ok'));
`
	decls := extractFile(t, "src/server.js", source)

	groups := withMarker(decls, topology.MarkerGroup)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].RawPath != "/api" {
		t.Errorf("mount = %+v", groups[0])
	}
	// app is never itself mounted, so the mount's parent is a dangling
	// reference that resolution treats as a root.
	if groups[0].Parent != routerGroupIdentity("src/server.js", "app") {
		t.Errorf("mount parent = %v, want app receiver reference", groups[0].Parent)
	}

	endpoints := withMarker(decls, topology.MarkerEndpoint)
	if len(endpoints) != 3 {
		t.Fatalf("endpoints = %d, want 3", len(endpoints))
	}
	for _, ep := range endpoints {
		switch {
		case strings.HasSuffix(ep.Name, "router.get"), strings.HasSuffix(ep.Name, "router.post"):
			if ep.Parent != groups[0].Identity {
				t.Errorf("%s parent = %v, want mounted router group", ep.Name, ep.Parent)
			}
		case strings.HasSuffix(ep.Name, "app.get"):
			if ep.Parent != topology.None || ep.RawPath != "/healthz" {
				t.Errorf("app.get = %+v", ep)
			}
		default:
			t.Errorf("unexpected endpoint %s", ep.Name)
		}
	}
}

func TestExtractExpressMountsDeclaredBottomUp(t *testing.T) {
	source := `
const express = require('express');
const app = express();
const router = express.Router();
const sub = express.Router();

sub.get('/items', listItems);
router.use('/v1', sub);
app.use('/api', router);
`
	decls := extractFile(t, "src/server.js", source)

	groups := withMarker(decls, topology.MarkerGroup)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	byID := map[topology.Identity]topology.Declaration{}
	for _, g := range groups {
		byID[g.Identity] = g
	}

	subID := routerGroupIdentity("src/server.js", "sub")
	routerID := routerGroupIdentity("src/server.js", "router")
	subG, ok := byID[subID]
	if !ok {
		t.Fatalf("sub mount missing")
	}
	if subG.Parent != routerID {
		t.Errorf("sub parent = %v, want router mount", subG.Parent)
	}
	routerG, ok := byID[routerID]
	if !ok {
		t.Fatalf("router mount missing")
	}
	if routerG.Parent != routerGroupIdentity("src/server.js", "app") {
		t.Errorf("router parent = %v, want app receiver reference", routerG.Parent)
	}

	endpoints := withMarker(decls, topology.MarkerEndpoint)
	if len(endpoints) != 1 {
		t.Fatalf("endpoints = %d, want 1", len(endpoints))
	}
	if endpoints[0].Parent != subID {
		t.Errorf("endpoint parent = %v, want sub mount", endpoints[0].Parent)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e, err := New("demo", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()
	b := topology.NewBatch()
	n, err := e.File("README.md", []byte("# hi"), b)
	if err != nil || n != 0 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
}

func TestExtractTreeCacheReuse(t *testing.T) {
	e, err := New("demo", 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()
	source := []byte("package api\n\n//route:GET /ping\nfunc Ping() {}\n")

	for i := 0; i < 3; i++ {
		b := topology.NewBatch()
		n, err := e.File("api/ping.go", source, b)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if n != 1 {
			t.Fatalf("pass %d: n = %d, want 1", i, n)
		}
	}
}

func TestExtractEvictedTreeStaysUsable(t *testing.T) {
	e, err := New("demo", 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	held, err := e.tree(lang.Go, "a.go", []byte("package a\n"))
	if err != nil {
		t.Fatalf("tree a: %v", err)
	}

	// A second file evicts the first from the single-slot cache while the
	// reference above is still held.
	other, err := e.tree(lang.Go, "b.go", []byte("package b\n"))
	if err != nil {
		t.Fatalf("tree b: %v", err)
	}
	other.release()

	if held.tree.RootNode().Kind() != "source_file" {
		t.Errorf("evicted tree unusable while a reference is held")
	}
	held.release()
}

func TestExtractConcurrentWithTinyCache(t *testing.T) {
	e, err := New("demo", 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel := fmt.Sprintf("api/f%d.go", i)
			src := []byte(fmt.Sprintf("package api\n\n//route:GET /p%d\nfunc H%d() {}\n", i, i))
			for j := 0; j < 20; j++ {
				b := topology.NewBatch()
				n, err := e.File(rel, src, b)
				if err != nil {
					t.Errorf("File %s: %v", rel, err)
					return
				}
				if n != 1 {
					t.Errorf("File %s: n = %d, want 1", rel, n)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
