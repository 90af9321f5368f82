package server

// HTMLPage is the HTML content for the DELTA demo's live stats dashboard.
// It polls /stats and renders the controller's advisory outputs as they
// change in response to the loopback session's real RTCP round trip.
const HTMLPage = `<!DOCTYPE html>
<html>
<head>
    <title>DELTA Congestion Controller Demo</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #333; margin-bottom: 10px; }
        .subtitle { color: #666; margin-bottom: 30px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(2, 1fr);
            gap: 16px;
        }
        .tile {
            background: #f1f3f4;
            padding: 16px;
            border-radius: 6px;
        }
        .tile .label { color: #666; font-size: 13px; }
        .tile .value { font-size: 28px; font-weight: 600; color: #1a73e8; }
        #state.Stable { color: #188038; }
        #state.Rising { color: #e8710a; }
        #state.Congested { color: #d93025; }
    </style>
</head>
<body>
    <div class="container">
        <h1>DELTA Congestion Controller</h1>
        <p class="subtitle">Live readout from a loopback WebRTC session driving a real RTCP round trip</p>

        <div class="grid">
            <div class="tile">
                <div class="label">Target Bitrate</div>
                <div class="value"><span id="bitrate">-</span> kbps</div>
            </div>
            <div class="tile">
                <div class="label">Target FPS</div>
                <div class="value"><span id="fps">-</span></div>
            </div>
            <div class="tile">
                <div class="label">FEC Ratio</div>
                <div class="value"><span id="fec">-</span></div>
            </div>
            <div class="tile">
                <div class="label">State</div>
                <div class="value" id="state">-</div>
            </div>
            <div class="tile">
                <div class="label">Smoothed RTT</div>
                <div class="value"><span id="rtt">-</span> ms</div>
            </div>
            <div class="tile">
                <div class="label">Queue Delay</div>
                <div class="value"><span id="queue">-</span> ms</div>
            </div>
        </div>
    </div>

    <script>
        async function poll() {
            try {
                const resp = await fetch('/stats');
                if (!resp.ok) return;
                const s = await resp.json();
                document.getElementById('bitrate').textContent = s.bitrate_kbps;
                document.getElementById('fps').textContent = s.fps;
                document.getElementById('fec').textContent = s.fec_ratio.toFixed(3);
                const stateEl = document.getElementById('state');
                stateEl.textContent = s.state;
                stateEl.className = s.state;
                document.getElementById('rtt').textContent = (s.rtt_smooth_us / 1000).toFixed(2);
                document.getElementById('queue').textContent = (s.queue_delay_us / 1000).toFixed(2);
            } catch (e) {
                // server not ready yet; keep polling
            }
        }
        poll();
        setInterval(poll, 500);
    </script>
</body>
</html>`
