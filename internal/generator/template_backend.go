package generator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// schemaFile is where the backend templates put the database schema.
const schemaFile = "src/main/resources/schema.sql"

func templateBackendStructure(_ context.Context, in orchestrator.Inputs, _ orchestrator.RunConfig) (artifact.Artifact, error) {
	doc, err := orchestrator.Input[*artifact.APIDocument](in, orchestrator.StageAPIDoc)
	if err != nil {
		return nil, err
	}

	entities := append([]string(nil), doc.Analysis.DataEntities...)
	if len(entities) == 0 {
		seen := make(map[string]bool)
		for _, ep := range doc.Plan.Endpoints() {
			for _, e := range ep.ResponseEntities {
				if !seen[e] {
					seen[e] = true
					entities = append(entities, e)
				}
			}
		}
	}
	if len(entities) == 0 {
		entities = []string{"Item"}
	}

	s := &artifact.BackendStructure{}
	for _, e := range entities {
		s.Entities = append(s.Entities, upperCamel(e))
		s.Tables = append(s.Tables, plural(snake(e)))
	}
	for _, prefix := range resourcePrefixes(doc.Plan) {
		s.Modules = append(s.Modules, moduleName(prefix))
	}
	return s, nil
}

func templateBasicFiles(_ context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	s, err := orchestrator.Input[*artifact.BackendStructure](in, StepStructureAnalysis)
	if err != nil {
		return nil, err
	}
	pkg := cfg.JavaPackage()
	app := upperCamel(cfg.ProjectName) + "Application"

	var schema strings.Builder
	for _, t := range s.Tables {
		fmt.Fprintf(&schema, "CREATE TABLE IF NOT EXISTS %s (\n", t)
		schema.WriteString("    id BIGINT AUTO_INCREMENT PRIMARY KEY,\n")
		schema.WriteString("    name VARCHAR(255) NOT NULL,\n")
		schema.WriteString("    description TEXT,\n")
		schema.WriteString("    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n")
		schema.WriteString(");\n\n")
	}

	return &artifact.FileSet{Files: []artifact.File{
		{Path: "pom.xml", Content: pomXML(cfg)},
		{Path: "src/main/resources/application.yml", Content: applicationYML(cfg)},
		{Path: schemaFile, Content: schema.String()},
		{Path: artifact.PackageDir(pkg) + "/" + app + ".java", Content: fmt.Sprintf(applicationJava, pkg, app)},
	}}, nil
}

func templateCompleteProject(_ context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	s, err := orchestrator.Input[*artifact.BackendStructure](in, StepStructureAnalysis)
	if err != nil {
		return nil, err
	}
	basic, err := orchestrator.Input[*artifact.FileSet](in, StepBasicFiles)
	if err != nil {
		return nil, err
	}
	doc, err := orchestrator.Input[*artifact.APIDocument](in, orchestrator.StageAPIDoc)
	if err != nil {
		return nil, err
	}
	pkg := cfg.JavaPackage()
	dir := artifact.PackageDir(pkg)

	var files []artifact.File
	for i, e := range s.Entities {
		table := plural(snake(e))
		if i < len(s.Tables) {
			table = s.Tables[i]
		}
		files = append(files,
			artifact.File{Path: dir + "/model/" + e + ".java", Content: fmt.Sprintf(entityJava, pkg, table, e)},
			artifact.File{Path: dir + "/repository/" + e + "Repository.java", Content: fmt.Sprintf(repositoryJava, pkg, e)},
		)
	}

	byPrefix := make(map[string][]operation)
	for _, op := range operations(doc.Plan) {
		prefix, _ := resource(op.Path)
		byPrefix[prefix] = append(byPrefix[prefix], op)
	}
	for _, prefix := range resourcePrefixes(doc.Plan) {
		name := upperCamel(moduleName(prefix)) + "Controller"
		files = append(files, artifact.File{
			Path:    dir + "/controller/" + name + ".java",
			Content: controllerJava(pkg, name, prefix, byPrefix[prefix]),
		})
	}

	files = append(files, artifact.File{Path: "README.md", Content: readme(cfg, doc.Plan, len(basic.Files)+len(files)+1)})
	return &artifact.FileSet{Files: files}, nil
}

// resourcePrefixes returns the distinct controller prefixes of a plan,
// sorted.
func resourcePrefixes(plan *artifact.InterfacePlan) []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range operations(plan) {
		prefix, _ := resource(op.Path)
		if !seen[prefix] {
			seen[prefix] = true
			out = append(out, prefix)
		}
	}
	sort.Strings(out)
	return out
}

// moduleName is the last static segment of a prefix: /api/products gives
// products.
func moduleName(prefix string) string {
	segs := strings.Split(strings.Trim(prefix, "/"), "/")
	name := segs[len(segs)-1]
	if name == "" {
		return "root"
	}
	return name
}

var mappingAnnotations = map[string]string{
	"GET":    "GetMapping",
	"POST":   "PostMapping",
	"PUT":    "PutMapping",
	"PATCH":  "PatchMapping",
	"DELETE": "DeleteMapping",
}

func controllerJava(pkg, name, prefix string, ops []operation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s.controller;\n\n", pkg)
	b.WriteString("import java.util.Map;\n\n")
	b.WriteString("import org.springframework.http.ResponseEntity;\n")
	b.WriteString("import org.springframework.web.bind.annotation.*;\n\n")
	b.WriteString("@RestController\n")
	fmt.Fprintf(&b, "@RequestMapping(%q)\n", prefix)
	fmt.Fprintf(&b, "public class %s {\n", name)
	for _, op := range ops {
		_, rest := resource(op.Path)
		b.WriteString("\n")
		if d := strings.TrimSpace(op.Endpoint.Description); d != "" {
			fmt.Fprintf(&b, "    // %s\n", strings.ReplaceAll(d, "\n", " "))
		}
		if ann, ok := mappingAnnotations[op.Method]; ok {
			fmt.Fprintf(&b, "    @%s(%q)\n", ann, rest)
		} else {
			fmt.Fprintf(&b, "    @RequestMapping(value = %q, method = RequestMethod.%s)\n", rest, op.Method)
		}
		var args []string
		for _, p := range op.Params {
			args = append(args, fmt.Sprintf("@PathVariable(%q) String %s", p, identifier(p)))
		}
		if op.Body {
			args = append(args, "@RequestBody Map<String, Object> body")
		}
		fmt.Fprintf(&b, "    public ResponseEntity<Map<String, Object>> %s(%s) {\n", op.Name, strings.Join(args, ", "))
		fmt.Fprintf(&b, "        return ResponseEntity.ok(Map.of(\"operation\", %q));\n", op.Name)
		b.WriteString("    }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func pomXML(cfg orchestrator.RunConfig) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <parent>
    <groupId>org.springframework.boot</groupId>
    <artifactId>spring-boot-starter-parent</artifactId>
    <version>3.2.5</version>
  </parent>
  <groupId>%s</groupId>
  <artifactId>%s</artifactId>
  <version>0.1.0</version>
  <properties>
    <java.version>17</java.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>org.springframework.boot</groupId>
      <artifactId>spring-boot-starter-web</artifactId>
    </dependency>
    <dependency>
      <groupId>org.springframework.boot</groupId>
      <artifactId>spring-boot-starter-data-jpa</artifactId>
    </dependency>
    <dependency>
      <groupId>com.mysql</groupId>
      <artifactId>mysql-connector-j</artifactId>
      <scope>runtime</scope>
    </dependency>
  </dependencies>
</project>
`, cfg.PackagePath, strings.ToLower(strings.ReplaceAll(cfg.ProjectName, "_", "-")))
}

func applicationYML(cfg orchestrator.RunConfig) string {
	return fmt.Sprintf(`spring:
  datasource:
    url: jdbc:mysql://localhost:3306/%s
    username: root
    password: root
  jpa:
    hibernate:
      ddl-auto: none
  sql:
    init:
      mode: always
server:
  port: 8080
`, cfg.DatabaseName)
}

func readme(cfg orchestrator.RunConfig, plan *artifact.InterfacePlan, files int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s backend\n\n", cfg.ProjectName)
	fmt.Fprintf(&b, "SpringBoot service in package `%s` serving %d endpoints from %d files.\n\n",
		cfg.JavaPackage(), plan.TotalAPIs(), files)
	b.WriteString("Run with `mvn spring-boot:run`.\n")
	return b.String()
}

const applicationJava = `package %[1]s;

import org.springframework.boot.SpringApplication;
import org.springframework.boot.autoconfigure.SpringBootApplication;

@SpringBootApplication
public class %[2]s {

    public static void main(String[] args) {
        SpringApplication.run(%[2]s.class, args);
    }
}
`

const entityJava = `package %[1]s.model;

import jakarta.persistence.*;

@Entity
@Table(name = "%[2]s")
public class %[3]s {

    @Id
    @GeneratedValue(strategy = GenerationType.IDENTITY)
    private Long id;

    private String name;

    private String description;

    public Long getId() { return id; }
    public void setId(Long id) { this.id = id; }
    public String getName() { return name; }
    public void setName(String name) { this.name = name; }
    public String getDescription() { return description; }
    public void setDescription(String description) { this.description = description; }
}
`

const repositoryJava = `package %[1]s.repository;

import org.springframework.data.jpa.repository.JpaRepository;

import %[1]s.model.%[2]s;

public interface %[2]sRepository extends JpaRepository<%[2]s, Long> {
}
`
