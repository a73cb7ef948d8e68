package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

func templateFrontend(_ context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	doc, err := orchestrator.Input[*artifact.APIDocument](in, orchestrator.StageAPIDoc)
	if err != nil {
		return nil, err
	}
	if _, err := orchestrator.Input[*artifact.HTMLPrototype](in, orchestrator.StagePrototype); err != nil {
		return nil, err
	}

	ts := cfg.TypeScript
	ext := "js"
	if ts {
		ext = "ts"
	}
	files := []artifact.File{
		{Path: "package.json", Content: packageJSON(cfg)},
		{Path: cfg.Framework.EntryHTML(), Content: indexHTML(cfg.ProjectName, ext)},
		{Path: "src/App.vue", Content: appVue(cfg.ProjectName, ts)},
		{Path: "src/views/Home.vue", Content: homeVue(ts)},
		{Path: "src/api/http." + ext, Content: httpModule(ts)},
		{Path: "src/api/index." + ext, Content: apiModule(operations(doc.Plan), ts)},
	}
	if cfg.Framework == artifact.FrameworkVue2 {
		files = append(files,
			artifact.File{Path: "vue.config.js", Content: vue2Config},
			artifact.File{Path: "src/main." + ext, Content: vue2Main},
		)
	} else {
		files = append(files,
			artifact.File{Path: "vite.config." + ext, Content: viteConfig},
			artifact.File{Path: "src/main." + ext, Content: vue3Main},
		)
	}
	if ts {
		files = append(files, artifact.File{Path: "tsconfig.json", Content: tsconfig})
	}
	return &artifact.FrontendProject{
		Framework:  cfg.Framework,
		TypeScript: ts,
		Files:      artifact.MergeFiles(files),
	}, nil
}

func packageJSON(cfg orchestrator.RunConfig) string {
	deps := `"vue": "^3.4.0"`
	dev := `"@vitejs/plugin-vue": "^5.0.0", "vite": "^5.2.0"`
	scripts := `"dev": "vite", "build": "vite build"`
	if cfg.Framework == artifact.FrameworkVue2 {
		deps = `"vue": "^2.7.16"`
		dev = `"@vue/cli-service": "^5.0.8"`
		scripts = `"serve": "vue-cli-service serve", "build": "vue-cli-service build"`
	}
	if cfg.TypeScript {
		dev += `, "typescript": "^5.4.0"`
	}
	return fmt.Sprintf(`{
  "name": %q,
  "private": true,
  "version": "0.1.0",
  "scripts": { %s },
  "dependencies": { %s },
  "devDependencies": { %s }
}
`, strings.ToLower(strings.ReplaceAll(cfg.ProjectName, "_", "-")), scripts, deps, dev)
}

func indexHTML(title, ext string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>%s</title>
  </head>
  <body>
    <div id="app"></div>
    <script type="module" src="/src/main.%s"></script>
  </body>
</html>
`, title, ext)
}

func scriptTag(ts bool) string {
	if ts {
		return `<script lang="ts">`
	}
	return `<script>`
}

func appVue(title string, ts bool) string {
	return fmt.Sprintf(`<template>
  <div id="app">
    <h1>%s</h1>
    <Home />
  </div>
</template>

%s
import Home from './views/Home.vue'

export default {
  name: 'App',
  components: { Home },
}
</script>
`, title, scriptTag(ts))
}

func homeVue(ts bool) string {
	return fmt.Sprintf(`<template>
  <ul>
    <li v-for="op in operations" :key="op">{{ op }}</li>
  </ul>
</template>

%s
import * as api from '../api'

export default {
  name: 'Home',
  data() {
    return { operations: Object.keys(api) }
  },
}
</script>
`, scriptTag(ts))
}

const httpTS = `export async function request(method: string, url: string, body?: unknown): Promise<unknown> {
  const init: RequestInit = { method, headers: { 'Content-Type': 'application/json' } }
  if (body !== undefined) {
    init.body = JSON.stringify(body)
  }
  const res = await fetch(url, init)
  if (!res.ok) {
    throw new Error(method + ' ' + url + ' failed with ' + res.status)
  }
  return res.status === 204 ? null : res.json()
}
`

const httpJS = `export async function request(method, url, body) {
  const init = { method, headers: { 'Content-Type': 'application/json' } }
  if (body !== undefined) {
    init.body = JSON.stringify(body)
  }
  const res = await fetch(url, init)
  if (!res.ok) {
    throw new Error(method + ' ' + url + ' failed with ' + res.status)
  }
  return res.status === 204 ? null : res.json()
}
`

func httpModule(ts bool) string {
	if ts {
		return httpTS
	}
	return httpJS
}

// apiModule emits one exported function per operation. Paths with
// parameters become template literals.
func apiModule(ops []operation, ts bool) string {
	var b strings.Builder
	b.WriteString("import { request } from './http'\n")
	for _, op := range ops {
		var args []string
		for _, p := range op.Params {
			if ts {
				args = append(args, identifier(p)+": string")
			} else {
				args = append(args, identifier(p))
			}
		}
		if op.Body {
			if ts {
				args = append(args, "body: Record<string, unknown>")
			} else {
				args = append(args, "body")
			}
		}

		url := "'" + op.Path + "'"
		if len(op.Params) > 0 {
			url = "`" + paramRe.ReplaceAllStringFunc(op.Path, func(m string) string {
				return "${" + identifier(paramRe.FindStringSubmatch(m)[1]) + "}"
			}) + "`"
		}
		call := fmt.Sprintf("request('%s', %s)", op.Method, url)
		if op.Body {
			call = fmt.Sprintf("request('%s', %s, body)", op.Method, url)
		}

		b.WriteString("\n")
		if d := strings.TrimSpace(op.Endpoint.Description); d != "" {
			fmt.Fprintf(&b, "// %s\n", strings.ReplaceAll(d, "\n", " "))
		}
		fmt.Fprintf(&b, "export function %s(%s) {\n  return %s\n}\n", op.Name, strings.Join(args, ", "), call)
	}
	return b.String()
}

const viteConfig = `import { defineConfig } from 'vite'
import vue from '@vitejs/plugin-vue'

export default defineConfig({
  plugins: [vue()],
  server: { proxy: { '/api': 'http://localhost:8080' } },
})
`

const vue3Main = `import { createApp } from 'vue'
import App from './App.vue'

createApp(App).mount('#app')
`

const vue2Config = `module.exports = {
  devServer: { proxy: { '/api': { target: 'http://localhost:8080' } } },
}
`

const vue2Main = `import Vue from 'vue'
import App from './App.vue'

new Vue({ render: (h) => h(App) }).$mount('#app')
`

const tsconfig = `{
  "compilerOptions": {
    "target": "ES2020",
    "module": "ESNext",
    "moduleResolution": "bundler",
    "strict": true,
    "jsx": "preserve",
    "skipLibCheck": true
  },
  "include": ["src/**/*.ts", "src/**/*.vue"]
}
`
