package dashboard

const dashboardHeader = `
<html>
	<head>
	<style>
		table {
			border-collapse: collapse;
			width: 100%;
		}
		th, td {
			border: 1px solid black;
			padding: 8px;
			text-align: left;
		}
		th {
			background-color: black;
			color: white;
		}
	</style>
		<title>xv6go dashboard</title>
	</head>
	<body>
`

const dashboardFooter = `
	</body>
</html>
`

const viewSlotDetails = `
		<div class="container">
		<div class="buttons">
			<a href="/"><button>All Slots</button></a>
			<a href="/tree/{{ .Pid }}"><button>Lineage</button></a>
		</div>
		<table>
			<tr><th>Field</th><th>Value</th></tr>
			{{range $idx, $value := . | slotDeets }}
			<tr><td>{{ $value.Field }}</td><td>{{ $value.Value }}</td></tr>
			{{ end }}
		</table>
		</div>
`

const viewTreeDetails = `
		<div class="container">
		<div class="buttons">
			<a href="/"><button>All Slots</button></a>
		</div>
		<ul>
			{{ range $value := . }}
			<li><a href="/slot/{{ .Pid }}">{{ .Name }} ({{ .Pid }}, {{ .State }})</a></li>
			{{ end }}
		</ul>
		</div>
`

const allSlotsView = `
		<div class="container">
		<table>
			<tr><th>PID</th><th>Name</th><th>State</th><th>Parent</th><th>Sz</th></tr>
			{{range . }}
			<tr>
				<td><a href="/slot/{{ .Pid }}">{{ .Pid }}</a></td>
				<td>{{ .Name }}</td>
				<td>{{ .State }}</td>
				<td>{{ .ParentPid }}</td>
				<td>{{ .Sz }}</td>
			</tr>
			{{end}}
		</table>
		</div>
`

const errorView = `
		<div class="container">
			<h1>Failed rendering requested page.</h1>
			<p>{{ . }}</p>
		</div>
`
