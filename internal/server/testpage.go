package server

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>roomrelay test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 220px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:disabled { background-color: #999; }
        .row { margin: 8px 0; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>roomrelay</h1>

    <div id="status" class="status disconnected">Disconnected</div>
    <button id="connectButton" onclick="toggleConnection()">Connect</button>

    <div class="row">
        <input type="text" id="roomInput" placeholder="Room name" disabled>
        <button class="live" onclick="sendFrame('join', {client_id: roomInput.value.trim()})" disabled>Join</button>
        <button class="live" onclick="sendFrame('leave', {client_id: roomInput.value.trim()})" disabled>Leave</button>
    </div>

    <div class="row">
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button class="live" onclick="sendMessage(false)" disabled>Send to all</button>
        <button class="live" onclick="sendMessage(true)" disabled>Send to room</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const roomInput = document.getElementById('roomInput');
        const messageInput = document.getElementById('messageInput');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '5px 0';
            line.style.color = color || 'gray';
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            roomInput.disabled = !connected;
            messageInput.disabled = !connected;
            document.querySelectorAll('button.live').forEach(b => b.disabled = !connected);
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => updateStatus(true);
            ws.onmessage = (event) => {
                const frame = JSON.parse(event.data);
                const where = frame.data.room ? ' [' + frame.data.room + ']' : '';
                addLine(frame.event + where + ': ' + frame.data.message, frame.event === 'message' ? 'green' : 'gray');
            };
            ws.onclose = () => { addLine('Connection closed'); updateStatus(false); ws = null; };
            ws.onerror = () => addLine('Connection error');
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendFrame(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: event, data: data}));
            }
        }

        function sendMessage(toRoom) {
            const text = messageInput.value.trim();
            if (!text) {
                return;
            }
            const data = {message: text};
            if (toRoom) {
                data.room = roomInput.value.trim();
            }
            sendFrame('message', data);
            addLine('You: ' + text, 'blue');
            messageInput.value = '';
        }

        messageInput.addEventListener('keypress', (e) => {
            if (e.key === 'Enter') {
                sendMessage(false);
            }
        });
    </script>
</body>
</html>`
