package visualizer

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"

	"github.com/Alterya/Globe/pkg/graph"
	"github.com/Alterya/Globe/pkg/layout"
)

// The HTML template for the standalone network page.
const networkTemplate = `<!DOCTYPE html>
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
            background-color: rgba(255,255,255,0.8);
            padding: 10px;
            border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
        .legend {
            list-style: none;
            margin: 5px 0 0;
            padding: 0;
            font-size: 12px;
        }
        .legend li::before {
            content: "\25CF ";
            color: var(--dot);
        }
    </style>
</head>
<body>
    <div id="graph"></div>
    <div class="controls">
        <h3>Threat Intelligence Network</h3>
        <p>Nodes: {{.NodeCount}}, Edges: {{.EdgeCount}}</p>
        <div>
            <label for="node-type-filter">Filter by node type:</label>
            <select id="node-type-filter">
                <option value="all">All Types</option>
            </select>
        </div>
        <ul class="legend">
            <li style="--dot: #e74c3c">source domain</li>
            <li style="--dot: #3498db">lookalike domain</li>
            <li style="--dot: #1abc9c">same-IP domain</li>
            <li style="--dot: #95a5a6">resolved IP</li>
            <li style="--dot: #f39c12">BTC address</li>
            <li style="--dot: #9b59b6">ETH address</li>
        </ul>
    </div>

    <script>
        const graphData = {{.GraphData}};
        const positions = {{.Positions}};

        const posByID = {};
        positions.forEach(p => { posByID[p.id] = p; });

        const svg = d3.select("#graph")
            .append("svg")
            .attr("width", "100%")
            .attr("height", "100%")
            .call(d3.zoom().on("zoom", (event) => {
                g.attr("transform", event.transform);
            }));

        const g = svg.append("g");

        const nodeTypes = [...new Set(graphData.nodes.map(node => node.node_type))];
        nodeTypes.forEach(type => {
            d3.select("#node-type-filter")
                .append("option")
                .attr("value", type)
                .text(type);
        });

        const link = g.append("g")
            .selectAll("line")
            .data(graphData.edges)
            .enter()
            .append("line")
            .attr("class", "link")
            .attr("stroke", d => d.color)
            .attr("stroke-width", 1.5)
            .attr("x1", d => posByID[d.source].x)
            .attr("y1", d => posByID[d.source].y)
            .attr("x2", d => posByID[d.target].x)
            .attr("y2", d => posByID[d.target].y);

        const shapeFor = {
            circle: d3.symbolCircle,
            square: d3.symbolSquare,
            triangle: d3.symbolTriangle,
        };

        const node = g.append("g")
            .selectAll("path")
            .data(graphData.nodes)
            .enter()
            .append("path")
            .attr("class", "node")
            .attr("d", d => d3.symbol()
                .type(shapeFor[d.shape] || d3.symbolCircle)
                .size(Math.PI * posByID[d.id].radius * posByID[d.id].radius)())
            .attr("fill", d => d.color)
            .attr("transform", d => "translate(" + posByID[d.id].x + "," + posByID[d.id].y + ")");

        const label = g.append("g")
            .selectAll("text")
            .data(graphData.nodes)
            .enter()
            .append("text")
            .attr("class", "node-label")
            .attr("dx", 12)
            .attr("dy", ".35em")
            .attr("x", d => posByID[d.id].x)
            .attr("y", d => posByID[d.id].y)
            .text(d => d.label);

        node.append("title")
            .text(d => d.label + " (" + d.node_type + ")");

        link.append("title")
            .text(d => d.relation);

        d3.select("#node-type-filter").on("change", function() {
            const selectedType = this.value;

            if (selectedType === "all") {
                node.style("visibility", "visible");
                link.style("visibility", "visible");
                label.style("visibility", "visible");
                return;
            }

            const visible = {};
            graphData.nodes.forEach(n => {
                visible[n.id] = n.node_type === selectedType;
            });

            node.style("visibility", d => visible[d.id] ? "visible" : "hidden");
            label.style("visibility", d => visible[d.id] ? "visible" : "hidden");
            link.style("visibility", d =>
                visible[d.source] || visible[d.target] ? "visible" : "hidden");
        });
    </script>
</body>
</html>
`

// settleSteps is how far the layout is advanced before positions are
// baked into the static page.
const settleSteps = 300

// Visualizer renders a network to a standalone HTML page with positions
// precomputed server-side.
type Visualizer struct {
	outputPath string
}

// NewVisualizer creates a visualizer writing to outputPath.
func NewVisualizer(outputPath string) *Visualizer {
	return &Visualizer{outputPath: outputPath}
}

// Visualize lays out the network and writes the HTML page.
func (v *Visualizer) Visualize(network *graph.Network) error {
	dir := filepath.Dir(v.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	engine := layout.NewEngine(network, layout.DefaultParams())
	engine.Prewarm()
	for i := 0; i < settleSteps; i++ {
		if engine.Step(1) == layout.PhaseIdle {
			break
		}
	}

	graphData, err := json.Marshal(network)
	if err != nil {
		return err
	}
	positions, err := json.Marshal(engine.Positions())
	if err != nil {
		return err
	}

	tmpl, err := template.New("network").Parse(networkTemplate)
	if err != nil {
		return err
	}

	data := struct {
		GraphData template.JS
		Positions template.JS
		NodeCount int
		EdgeCount int
	}{
		GraphData: template.JS(graphData),
		Positions: template.JS(positions),
		NodeCount: len(network.Nodes),
		EdgeCount: len(network.Edges),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	return os.WriteFile(v.outputPath, buf.Bytes(), 0644)
}
