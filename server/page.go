package server

import "html/template"

// The live page is a thin client: the query box, drag gestures, and the
// position stream all go through the HTTP API, and every layout decision
// stays server-side.
const pageSource = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Threat Intelligence Network</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body {
            margin: 0;
            font-family: Arial, sans-serif;
        }
        #graph {
            width: 100%;
            height: 100vh;
            background-color: #f5f5f5;
        }
        .node {
            stroke: #fff;
            stroke-width: 1.5px;
            cursor: grab;
        }
        .link {
            stroke-opacity: 0.6;
        }
        .node-label {
            font-size: 10px;
            pointer-events: none;
        }
        .controls {
            position: absolute;
            top: 10px;
            left: 10px;
            background-color: rgba(255,255,255,0.9);
            padding: 10px;
            border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
            width: 320px;
        }
        #query {
            width: 100%;
            box-sizing: border-box;
            padding: 6px;
        }
        #explanation {
            font-size: 12px;
            color: #444;
        }
        #empty {
            display: none;
            position: absolute;
            top: 45%;
            width: 100%;
            text-align: center;
            color: #888;
            font-size: 18px;
        }
    </style>
</head>
<body>
    <div id="graph"></div>
    <div id="empty">No data matches the current view</div>
    <div class="controls">
        <h3>Threat Intelligence Network</h3>
        <input id="query" type="text" placeholder="Ask about the network, e.g. 'show only bitcoin'">
        <p id="explanation">Showing all data</p>
        <p id="counts"></p>
    </div>

    <script>
        const svg = d3.select("#graph").append("svg")
            .attr("width", "100%").attr("height", "100%")
            .call(d3.zoom().on("zoom", (event) => g.attr("transform", event.transform)));
        const g = svg.append("g");
        const linkLayer = g.append("g");
        const nodeLayer = g.append("g");
        const labelLayer = g.append("g");

        const shapeFor = {
            circle: d3.symbolCircle,
            square: d3.symbolSquare,
            triangle: d3.symbolTriangle,
        };

        let network = {nodes: [], edges: []};
        let positions = {};

        function post(path, body) {
            return fetch(path, {
                method: "POST",
                headers: {"Content-Type": "application/json"},
                body: JSON.stringify(body),
            }).then(r => r.json());
        }

        function render() {
            document.getElementById("empty").style.display =
                network.nodes.length === 0 ? "block" : "none";

            const link = linkLayer.selectAll("line")
                .data(network.edges, d => d.source + "|" + d.target + "|" + d.relation);
            link.exit().remove();
            link.enter().append("line")
                .attr("class", "link")
                .attr("stroke", d => d.color)
                .attr("stroke-width", 1.5);

            const node = nodeLayer.selectAll("path")
                .data(network.nodes, d => d.id);
            node.exit().remove();
            node.enter().append("path")
                .attr("class", "node")
                .attr("fill", d => d.color)
                .call(d3.drag()
                    .on("start", (event, d) => post("/api/drag/start", {id: d.id, x: event.x, y: event.y}))
                    .on("drag", (event, d) => post("/api/drag/move", {id: d.id, x: event.x, y: event.y}))
                    .on("end", (event, d) => post("/api/drag/end", {id: d.id})))
                .append("title").text(d => d.label + " (" + d.node_type + ")");

            const label = labelLayer.selectAll("text")
                .data(network.nodes, d => d.id);
            label.exit().remove();
            label.enter().append("text")
                .attr("class", "node-label")
                .attr("dx", 12)
                .attr("dy", ".35em")
                .text(d => d.label);

            reposition();
        }

        function reposition() {
            nodeLayer.selectAll("path")
                .attr("d", d => {
                    const p = positions[d.id];
                    const r = p ? p.radius : 10;
                    return d3.symbol().type(shapeFor[d.shape] || d3.symbolCircle)
                        .size(Math.PI * r * r)();
                })
                .attr("transform", d => {
                    const p = positions[d.id];
                    return p ? "translate(" + p.x + "," + p.y + ")" : null;
                });

            labelLayer.selectAll("text")
                .attr("x", d => positions[d.id] ? positions[d.id].x : 0)
                .attr("y", d => positions[d.id] ? positions[d.id].y : 0);

            linkLayer.selectAll("line")
                .attr("x1", d => positions[d.source] ? positions[d.source].x : 0)
                .attr("y1", d => positions[d.source] ? positions[d.source].y : 0)
                .attr("x2", d => positions[d.target] ? positions[d.target].x : 0)
                .attr("y2", d => positions[d.target] ? positions[d.target].y : 0);
        }

        function refreshGraph() {
            fetch("/api/graph").then(r => r.json()).then(body => {
                network = body.network;
                document.getElementById("explanation").textContent =
                    body.analysis.explanation;
                document.getElementById("counts").textContent =
                    "Nodes: " + network.nodes.length + ", Edges: " + network.edges.length;
                render();
            });
        }

        // Query box. The server debounces too; this only spares it the
        // network chatter.
        let pending = null;
        document.getElementById("query").addEventListener("input", (event) => {
            clearTimeout(pending);
            pending = setTimeout(() => {
                post("/api/query", {query: event.target.value}).then(result => {
                    if (!result.superseded) refreshGraph();
                });
            }, 200);
        });

        const stream = new EventSource("/api/positions");
        stream.onmessage = (event) => {
            const frame = JSON.parse(event.data);
            positions = {};
            frame.positions.forEach(p => { positions[p.id] = p; });
            reposition();
        };

        refreshGraph();
    </script>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Parse(pageSource))
